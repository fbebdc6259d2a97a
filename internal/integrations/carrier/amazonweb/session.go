package amazonweb

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shipscope/shipscope/internal/trackerr"
)

type sessionState int

const (
	sessionNone sessionState = iota
	sessionLoggingIn
	sessionActive
	// sessionFailed is terminal: second-factor and bot-verification
	// challenges (and missing credentials) need manual resolution, so the
	// stored failure is returned to every later fetch without retrying.
	sessionFailed
)

// ensureSession makes the shared session usable, logging in when needed.
// The mutex serializes concurrent logins: one caller authenticates, the
// rest reuse the outcome.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case sessionFailed:
		return c.failure
	case sessionActive:
		if c.now().Sub(c.loggedInAt) < c.maxSessionAge {
			return nil
		}
		// Stale but nominally active: re-verify before reuse instead of
		// trusting the cookie jar.
		if err := c.verifySession(ctx); err == nil {
			c.loggedInAt = c.now()
			return nil
		}
		c.state = sessionNone
	}

	if c.creds.Email == "" || c.creds.Password == "" {
		c.state = sessionFailed
		c.failure = trackerr.New(trackerr.KindConfiguration,
			"amazon credentials are not configured (set amazon.email and amazon.password)")
		return c.failure
	}

	c.state = sessionLoggingIn
	if err := c.login(ctx); err != nil {
		if trackerr.KindOf(err) == trackerr.KindUpstreamAuth {
			c.state = sessionFailed
			c.failure = err
		} else {
			c.state = sessionNone
		}
		return err
	}

	c.state = sessionActive
	c.loggedInAt = c.now()
	return nil
}

// login walks the multi-step sign-in: submit identity, submit secret,
// verify access to an authenticated page. Challenge markers in any
// response body abort with a terminal error.
func (c *Client) login(ctx context.Context) error {
	body, err := c.get(ctx, "/ap/signin")
	if err != nil {
		return err
	}
	if err := detectChallenge(body); err != nil {
		return err
	}

	action, fields, err := parseForm(body, "form[name=signIn]")
	if err != nil {
		return trackerr.Wrap(trackerr.KindUpstreamAuth, err, "sign-in form not found")
	}
	fields.Set("email", c.creds.Email)
	body, err = c.postForm(ctx, action, fields)
	if err != nil {
		return err
	}
	if err := detectChallenge(body); err != nil {
		return err
	}

	action, fields, err = parseForm(body, "form[name=signIn]")
	if err != nil {
		return trackerr.Wrap(trackerr.KindUpstreamAuth, err, "password form not found")
	}
	fields.Set("password", c.creds.Password)
	body, err = c.postForm(ctx, action, fields)
	if err != nil {
		return err
	}
	if err := detectChallenge(body); err != nil {
		return err
	}

	return c.verifySession(ctx)
}

// verifySession fetches an authenticated page and checks the signed-in
// marker.
func (c *Client) verifySession(ctx context.Context) error {
	body, err := c.get(ctx, "/gp/css/homepage.html")
	if err != nil {
		return err
	}
	if err := detectChallenge(body); err != nil {
		return err
	}
	if !strings.Contains(body, "nav-item-signout") {
		return trackerr.New(trackerr.KindUpstreamAuth, "authentication rejected by provider")
	}
	return nil
}

// detectChallenge scans a response body for terminal, non-retryable
// conditions.
func detectChallenge(body string) error {
	low := strings.ToLower(body)
	if strings.Contains(low, "auth-mfa-form") || strings.Contains(low, "two-step verification") {
		return trackerr.New(trackerr.KindUpstreamAuth,
			"second-factor challenge detected: manual resolution required")
	}
	if strings.Contains(low, "cvf-page") || strings.Contains(low, "captcha") {
		return trackerr.New(trackerr.KindUpstreamAuth,
			"bot verification challenge detected: manual resolution required")
	}
	return nil
}

// parseForm extracts a form's action and its input fields (hidden tokens
// included) so the next step can echo them back.
func parseForm(body, selector string) (string, url.Values, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", nil, errors.Wrap(err, "parse form page")
	}
	form := doc.Find(selector).First()
	if form.Length() == 0 {
		return "", nil, errors.Errorf("no form matches %q", selector)
	}
	action, _ := form.Attr("action")
	if action == "" {
		return "", nil, errors.New("form has no action")
	}

	fields := url.Values{}
	form.Find("input").Each(func(_ int, in *goquery.Selection) {
		name, ok := in.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := in.Attr("value")
		fields.Set(name, value)
	})
	return action, fields, nil
}

func (c *Client) get(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(path), nil)
	if err != nil {
		return "", trackerr.Wrap(trackerr.KindUpstreamFetch, err, "new request")
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, action string, fields url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(action),
		strings.NewReader(fields.Encode()))
	if err != nil {
		return "", trackerr.Wrap(trackerr.KindUpstreamFetch, err, "new request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", trackerr.Wrap(trackerr.KindUpstreamFetch, err, "do request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", trackerr.Wrap(trackerr.KindUpstreamFetch, err, "read body")
	}
	if resp.StatusCode/100 != 2 {
		return "", trackerr.Newf(trackerr.KindUpstreamFetch, "provider http %d for %s",
			resp.StatusCode, req.URL.Path)
	}
	return string(b), nil
}

func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}
	return c.baseURL + pathOrURL
}
