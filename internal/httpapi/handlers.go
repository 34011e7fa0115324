package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/jwt"
	"github.com/MrEthical07/goVerify/middleware"
	"github.com/sirupsen/logrus"
)

// Engine is the subset of *goVerify.Engine the handlers call.
type Engine interface {
	SendVerifyCode(ctx context.Context, purpose goVerify.Purpose, identifier string) (*goVerify.SendCodeResult, error)
	Register(ctx context.Context, req goVerify.RegisterRequest) (*goVerify.Account, error)
	Login(ctx context.Context, identifier, password string) (*goVerify.LoginResult, error)
	ResetPassword(ctx context.Context, identifier, code, newPassword string) error
	ChangeIdentifier(ctx context.Context, userID string, purpose goVerify.Purpose, newIdentifier, code string) error
	Logout(ctx context.Context, token string) error
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type handler struct {
	engine Engine
	log    logrus.FieldLogger
	now    func() time.Time
	// countryCode, when set, turns national phone numbers into E.164.
	countryCode string
}

// identifierBody accepts "identifier" or the legacy "mobile"/"email" fields.
type identifierBody struct {
	Identifier string `json:"identifier"`
	Mobile     string `json:"mobile"`
	Email      string `json:"email"`
}

func (b identifierBody) value() string {
	for _, v := range []string{b.Identifier, b.Mobile, b.Email} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// identifier returns the submitted identifier, rewriting a bare national
// number such as 13800138000 (or 07700900123 with a trunk zero) to
// +<country code><number> when a default country code is configured.
func (h *handler) identifier(b identifierBody) string {
	v := b.value()
	if h.countryCode == "" || v == "" || strings.HasPrefix(v, "+") || strings.ContainsRune(v, '@') {
		return v
	}
	national := strings.TrimPrefix(v, "0")
	if national == "" || strings.TrimLeft(national, "0123456789") != "" {
		return v
	}
	return "+" + h.countryCode + national
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

type sendCodeRequest struct {
	identifierBody
	Type string `json:"type"`
}

type sendCodeData struct {
	Purpose   string `json:"purpose"`
	Channel   string `json:"channel"`
	ExpiresIn int64  `json:"expires_in"`
	Reused    bool   `json:"reused"`
	Code      string `json:"sms_code,omitempty"`
}

func (h *handler) sendVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.SendVerifyCode(r.Context(), codes.ParsePurpose(req.Type), h.identifier(req.identifierBody))
	if err != nil {
		writeError(w, err)
		return
	}

	data := sendCodeData{
		Purpose:   res.Purpose.String(),
		Channel:   string(res.Channel),
		ExpiresIn: int64(res.ExpiresIn.Seconds()),
		Reused:    res.Reused,
		Code:      res.DebugCode,
	}
	if res.DeliveryErr != nil {
		h.log.WithError(res.DeliveryErr).WithField("purpose", data.Purpose).Warn("verification code delivery failed")
		writeJSON(w, http.StatusBadGateway, envelope{Code: "delivery_failed", Message: "code issued but delivery failed, retry later", Data: data})
		return
	}
	writeOK(w, "sent", data)
}

type registerRequest struct {
	identifierBody
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Code     string `json:"sms_code"`
	AltCode  string `json:"code"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	acct, err := h.engine.Register(r.Context(), goVerify.RegisterRequest{
		Identifier: h.identifier(req.identifierBody),
		Password:   req.Password,
		Nickname:   req.Nickname,
		Code:       firstNonEmpty(req.Code, req.AltCode),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "registered", acct.Profile())
}

type loginRequest struct {
	identifierBody
	Password string `json:"password"`
}

type authorizeData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type loginData struct {
	Authorize authorizeData    `json:"authorize"`
	UserInfo  goVerify.Profile `json:"userInfo"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.Login(r.Context(), h.identifier(req.identifierBody), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "authorized", loginData{
		Authorize: authorizeData{
			AccessToken: res.AccessToken,
			TokenType:   res.TokenType,
			ExpiresIn:   int64(res.ExpiresIn.Seconds()),
		},
		UserInfo: res.Profile,
	})
}

type forgetRequest struct {
	identifierBody
	Password string `json:"password"`
	Code     string `json:"sms_code"`
	AltCode  string `json:"code"`
}

func (h *handler) forget(w http.ResponseWriter, r *http.Request) {
	var req forgetRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.engine.ResetPassword(r.Context(), h.identifier(req.identifierBody), firstNonEmpty(req.Code, req.AltCode), req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "password reset", nil)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "logged out", nil)
}

type meData struct {
	UID       string `json:"uid"`
	TokenID   string `json:"token_id"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	writeOK(w, "", meData{
		UID:       claims.UserID(),
		TokenID:   claims.TokenID(),
		ExpiresIn: int64(claims.Remaining(h.now()).Seconds()),
	})
}

type changeIdentifierRequest struct {
	identifierBody
	Type    string `json:"type"`
	Code    string `json:"sms_code"`
	AltCode string `json:"code"`
}

func (h *handler) changeIdentifier(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}
	var req changeIdentifierRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.engine.ChangeIdentifier(r.Context(), claims.UserID(), codes.ParsePurpose(req.Type), h.identifier(req.identifierBody), firstNonEmpty(req.Code, req.AltCode))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "identifier changed", nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
