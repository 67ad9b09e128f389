package session

import (
	"net/http"
	"time"

	"github.com/mehmetcc/todox/internal/config"
)

// CookieName carries the session token.
const CookieName = "authentication"

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func OptionsFromConfig(cfg *config.CookieConfig) CookieOptions {
	if cfg == nil {
		return CookieOptions{}
	}
	return CookieOptions{
		Domain:   cfg.Domain,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	// browsers drop SameSite=None cookies without Secure
	if o.SameSite == http.SameSiteNoneMode {
		o.Secure = true
	}
	return o
}

// Extract returns the session token carried by r. A missing Cookie header,
// a missing cookie and an empty value all report false.
func Extract(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Attach issues the session cookie. A zero expiresAt produces a browser
// session cookie.
func Attach(w http.ResponseWriter, token string, expiresAt time.Time, opts CookieOptions) {
	opts = opts.normalize()

	c := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     opts.Path,
		Domain:   opts.Domain,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	}
	if !expiresAt.IsZero() {
		c.Expires = expiresAt.UTC()
		if maxAge := int(time.Until(expiresAt).Seconds()); maxAge > 0 {
			c.MaxAge = maxAge
		}
	}
	http.SetCookie(w, c)
}

// Clear removes the session cookie from the client.
func Clear(w http.ResponseWriter, opts CookieOptions) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
