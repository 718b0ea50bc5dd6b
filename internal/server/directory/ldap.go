package directory

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/dirauth/internal/server/auth"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
	"github.com/go-ldap/ldap/v3"
)

// Messages returned to clients in DirectoryAuthError.ErrorMessage.
const (
	MsgConnect      = "Error connecting to LDAP server"
	MsgBadLogin     = "Username or password incorrect"
	MsgEmptyLogin   = "Username and password are required"
	MsgSearchFailed = "LDAP search failed"
)

var (
	errNoEntry        = errors.New("no directory entry matches login")
	errSeveralEntries = errors.New("several directory entries match login")
)

type conn interface {
	StartTLS(config *tls.Config) error
	SetTimeout(time.Duration)
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

type dialFunc func(url string, cfg config.LDAPConfig) (conn, error)

// LDAPClient performs the service-bind, search, user-bind sequence.
type LDAPClient struct {
	cfg  config.LDAPConfig
	dial dialFunc
}

func NewLDAPClient(cfg config.LDAPConfig) *LDAPClient {
	return &LDAPClient{cfg: cfg, dial: dialLDAP}
}

func dialLDAP(url string, cfg config.LDAPConfig) (conn, error) {
	opts := []ldap.DialOpt{
		ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout}),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}
	c, err := ldap.DialURL(url, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *LDAPClient) Authenticate(ctx context.Context, login, password string) (*Identity, error) {
	if login == "" || password == "" {
		// An empty password would be an unauthenticated bind, which most
		// servers accept.
		return nil, &auth.DirectoryAuthError{ErrorMessage: MsgEmptyLogin}
	}
	if err := ctx.Err(); err != nil {
		return nil, &auth.DirectoryAuthError{ErrorMessage: MsgConnect, Err: err}
	}

	l, err := c.connect()
	if err != nil {
		return nil, &auth.DirectoryAuthError{ErrorMessage: MsgConnect, Err: err}
	}
	defer l.Close()

	if c.cfg.BindDN != "" {
		if err := l.Bind(c.cfg.BindDN, c.cfg.BindPassword); err != nil {
			return nil, &auth.DirectoryAuthError{ErrorMessage: MsgConnect, Err: fmt.Errorf("service bind: %w", err)}
		}
	}

	entry, err := c.find(l, login)
	if err != nil {
		msg := MsgBadLogin
		if !errors.Is(err, errNoEntry) && !errors.Is(err, errSeveralEntries) {
			msg = MsgSearchFailed
		}
		return nil, &auth.DirectoryAuthError{ErrorMessage: msg, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, &auth.DirectoryAuthError{ErrorMessage: MsgConnect, Err: err}
	}
	if err := l.Bind(entry.DN, password); err != nil {
		return nil, &auth.DirectoryAuthError{ErrorMessage: MsgBadLogin, Err: err}
	}

	id := c.identity(entry)
	if id.Principal == "" {
		return nil, &auth.DirectoryAuthError{
			ErrorMessage: MsgBadLogin,
			Err:          fmt.Errorf("entry %q has no %s attribute", entry.DN, c.cfg.UsernameAttribute),
		}
	}
	return id, nil
}

func (c *LDAPClient) connect() (conn, error) {
	l, err := c.dial(c.cfg.ServerURL, c.cfg)
	if err != nil {
		return nil, err
	}
	if c.cfg.Timeout > 0 {
		l.SetTimeout(c.cfg.Timeout)
	}
	if c.cfg.StartTLS {
		tc := &tls.Config{InsecureSkipVerify: c.cfg.InsecureSkipVerify}
		if err := l.StartTLS(tc); err != nil {
			l.Close()
			return nil, fmt.Errorf("start tls: %w", err)
		}
	}
	return l, nil
}

func (c *LDAPClient) find(l conn, login string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		c.cfg.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, int(c.cfg.Timeout/time.Second), false,
		c.filter(login),
		c.attributes(),
		nil,
	)

	res, err := l.Search(req)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, err
	}
	switch {
	case res == nil || len(res.Entries) == 0:
		return nil, errNoEntry
	case len(res.Entries) > 1:
		return nil, errSeveralEntries
	}
	return res.Entries[0], nil
}

// filter matches login against every search property, ANDed with the
// additional filter when one is configured.
func (c *LDAPClient) filter(login string) string {
	props := c.cfg.SearchProperties
	if len(props) == 0 {
		props = []string{c.cfg.UsernameAttribute, c.cfg.EmailAttribute}
	}

	escaped := ldap.EscapeFilter(login)
	var b strings.Builder
	n := 0
	for _, p := range props {
		if p == "" {
			continue
		}
		fmt.Fprintf(&b, "(%s=%s)", p, escaped)
		n++
	}

	f := b.String()
	if n > 1 {
		f = "(|" + f + ")"
	}
	if c.cfg.SearchFilterAdditional != "" {
		f = "(&" + f + c.cfg.SearchFilterAdditional + ")"
	}
	return f
}

func (c *LDAPClient) attributes() []string {
	var attrs []string
	for _, a := range []string{c.cfg.UsernameAttribute, c.cfg.EmailAttribute, c.cfg.FullNameAttribute} {
		if a != "" {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

func (c *LDAPClient) identity(e *ldap.Entry) *Identity {
	id := &Identity{
		Principal: e.GetAttributeValue(c.cfg.UsernameAttribute),
		Email:     e.GetAttributeValue(c.cfg.EmailAttribute),
		FullName:  e.GetAttributeValue(c.cfg.FullNameAttribute),
	}
	if c.cfg.LowercaseUsername {
		id.Principal = strings.ToLower(id.Principal)
	}
	return id
}
