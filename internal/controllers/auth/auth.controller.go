package authController

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"server/config"
	"server/internal/logger"
	. "server/internal/models"
	"server/internal/repositories"
	"server/internal/services"

	"golang.org/x/oauth2"
)

// AuthController wraps the external OAuth identity provider. Admins prove
// their identity to the provider; only emails already present in
// admin_users get a session.
type AuthController struct {
	adminUserRepo  repositories.AdminUserRepository
	sessionService *services.SessionService
	oauth          *oauth2.Config
	userinfoURL    string
	log            logger.Logger
}

func New(
	adminUserRepo repositories.AdminUserRepository,
	sessionService *services.SessionService,
	config config.Config,
) *AuthController {
	return &AuthController{
		adminUserRepo:  adminUserRepo,
		sessionService: sessionService,
		oauth: &oauth2.Config{
			ClientID:     config.AdminOAuthClientID,
			ClientSecret: config.AdminOAuthClientSecret,
			RedirectURL:  config.HTTPOrigin + "/auth/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AdminOAuthBaseURL + "/authorize",
				TokenURL: config.AdminOAuthBaseURL + "/oauth/token",
			},
		},
		userinfoURL: config.AdminOAuthBaseURL + "/userinfo",
		log:         logger.New("AuthController"),
	}
}

// LoginURL returns the provider authorization URL to redirect the admin to.
// max_age=0 forces re-authentication, which also makes provider logout
// unnecessary.
func (c *AuthController) LoginURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("max_age", "0"))
}

// HandleCallback exchanges the authorization code, resolves the provider
// identity to an admin user, and opens a session. Unknown emails get no
// session and no account.
func (c *AuthController) HandleCallback(ctx context.Context, code string) (string, error) {
	log := c.log.Function("HandleCallback")

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", log.Err("failed to exchange authorization code", err)
	}

	email, err := c.fetchEmail(ctx, token)
	if err != nil {
		return "", err
	}

	user, err := c.adminUserRepo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		log.Warn("login attempt by unknown admin", "email", email)
		return "", nil
	}

	sessionID, err := c.sessionService.Create(ctx, user.Email)
	if err != nil {
		return "", err
	}

	log.Info("Admin logged in", "email", user.Email, "organizationID", user.OrganizationID)
	return sessionID, nil
}

// GetLoggedInAdmin resolves a session cookie to the admin user, or nil if
// the session is missing, expired, or orphaned.
func (c *AuthController) GetLoggedInAdmin(ctx context.Context, sessionID string) (*AdminUser, error) {
	email, err := c.sessionService.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, nil
	}

	return c.adminUserRepo.GetByEmail(ctx, email)
}

func (c *AuthController) Logout(ctx context.Context, sessionID string) error {
	return c.sessionService.Destroy(ctx, sessionID)
}

func (c *AuthController) fetchEmail(ctx context.Context, token *oauth2.Token) (string, error) {
	log := c.log.Function("fetchEmail")

	resp, err := c.oauth.Client(ctx, token).Get(c.userinfoURL)
	if err != nil {
		return "", log.Err("failed to fetch userinfo", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", log.Error("userinfo request rejected", "status", resp.StatusCode)
	}

	var userinfo struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return "", log.Err("failed to decode userinfo", err)
	}
	if userinfo.Email == "" {
		return "", fmt.Errorf("identity provider returned no email")
	}

	return userinfo.Email, nil
}
