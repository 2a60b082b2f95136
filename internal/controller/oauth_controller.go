package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agendauth/agendauth/internal/identity"
	"github.com/agendauth/agendauth/internal/scopes"
	"github.com/agendauth/agendauth/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type OAuthController struct {
	router   *gin.RouterGroup
	flow     *service.FlowService
	exchange *service.ExchangeService
	grants   *service.GrantService
	verifier identity.Verifier
}

func NewOAuthController(router *gin.RouterGroup, flow *service.FlowService, exchange *service.ExchangeService, grants *service.GrantService, verifier identity.Verifier) *OAuthController {
	return &OAuthController{
		router:   router,
		flow:     flow,
		exchange: exchange,
		grants:   grants,
		verifier: verifier,
	}
}

func (controller *OAuthController) SetupRoutes() {
	controller.router.GET("/authorize", controller.authorizeHandler)
	allowMethods(controller.router, "/authorize", http.MethodGet)

	controller.router.POST("/allowapp", controller.allowAppHandler)
	allowMethods(controller.router, "/allowapp", http.MethodPost)

	controller.router.POST("/token", controller.tokenHandler)
	allowMethods(controller.router, "/token", http.MethodPost)

	controller.router.POST("/revoke/:appId", controller.revokeHandler)
	allowMethods(controller.router, "/revoke/:appId", http.MethodPost)
}

func (controller *OAuthController) authorizeHandler(c *gin.Context) {
	responseType, err := service.ParseResponseType(c.Query("response_type"))

	if err != nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "unsupported response type"})
		return
	}

	clientID := c.Query("client_id")

	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id is required"})
		return
	}

	requestedScopes := splitScopes(c.Query("scopes"))

	consent, err := controller.flow.BeginAuthorization(
		c.Request.Context(),
		clientID,
		responseType,
		c.Query("redirect_url"),
		requestedScopes,
		c.Query("state"),
	)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrAppNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
		case errors.Is(err, service.ErrBadRedirect):
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad redirect url"})
		case errors.Is(err, scopes.ErrInvalidScope):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scopes"})
		default:
			log.Error().Err(err).Msg("Failed to begin authorization")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	c.JSON(http.StatusOK, consent)
}

// AllowAppRequest is the consent decision submitted by the consent page.
// The identity credential keeps its historical field name.
type AllowAppRequest struct {
	RedirectURL   string `json:"redirect_url"`
	FirebaseToken string `json:"firebase_token"`
	ResponseType  string `json:"response_type"`
	Scopes        string `json:"scopes"`
	ClientID      string `json:"client_id"`
	State         string `json:"state"`
}

func (controller *OAuthController) allowAppHandler(c *gin.Context) {
	var req AllowAppRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	responseType, err := service.ParseResponseType(req.ResponseType)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported response type"})
		return
	}

	// The consent page posts the scope list as a JSON array string
	var requestedScopes []string

	if err := json.Unmarshal([]byte(req.Scopes), &requestedScopes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scopes"})
		return
	}

	redirect, err := controller.flow.Decide(c.Request.Context(), service.DecideRequest{
		Credential:   req.FirebaseToken,
		ClientID:     req.ClientID,
		RedirectURL:  req.RedirectURL,
		ResponseType: responseType,
		Scopes:       requestedScopes,
		State:        req.State,
	})

	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "identity verification failed"})
		case errors.Is(err, service.ErrAppNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
		case errors.Is(err, service.ErrBadRedirect):
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad redirect url"})
		case errors.Is(err, scopes.ErrInvalidScope):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scopes"})
		default:
			log.Error().Err(err).Msg("Failed to record consent decision")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	c.Redirect(http.StatusSeeOther, redirect)
}

// TokenRequest is the token endpoint form body.
type TokenRequest struct {
	GrantType    string `form:"grant_type"`
	Code         string `form:"code"`
	RefreshToken string `form:"refresh_token"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	RedirectURL  string `form:"redirect_url"`
}

func (controller *OAuthController) tokenHandler(c *gin.Context) {
	var req TokenRequest

	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	grantType, err := service.ParseGrantType(req.GrantType)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if req.ClientID == "" || req.ClientSecret == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if grantType == service.GrantTypeAuthorizationCode && req.Code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if grantType == service.GrantTypeRefreshToken && req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	response, err := controller.exchange.Exchange(c.Request.Context(), service.ExchangeRequest{
		GrantType:    grantType,
		Code:         req.Code,
		RefreshToken: req.RefreshToken,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURL:  req.RedirectURL,
	})

	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidGrant):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_grant"})
		case errors.Is(err, service.ErrInvalidClient):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_client"})
		default:
			log.Error().Err(err).Msg("Failed to exchange grant for tokens")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// RevokeRequest carries the identity credential authorizing the revocation.
type RevokeRequest struct {
	FirebaseToken string `json:"firebase_token"`
}

func (controller *OAuthController) revokeHandler(c *gin.Context) {
	appID := c.Param("appId")

	var req RevokeRequest

	if err := c.ShouldBindJSON(&req); err != nil || req.FirebaseToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity credential is required"})
		return
	}

	user, err := controller.verifier.Verify(req.FirebaseToken)

	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity verification failed"})
		return
	}

	err = controller.grants.Revoke(c.Request.Context(), user, appID)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrGrantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "nothing to revoke"})
		default:
			log.Error().Err(err).Str("app", appID).Msg("Failed to revoke grant")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func splitScopes(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
