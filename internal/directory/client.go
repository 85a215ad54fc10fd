package directory

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// Client wraps a bound LDAP connection. It issues whole-subtree searches
// without paging; the server is expected to return each subtree in one
// response.
type Client struct {
	conn *ldap.Conn
}

// Dial connects to addr (an ldap:// URL) and authenticates with a simple
// bind. The connection is plaintext; the identity vault sits on a trusted
// network segment.
func Dial(addr, bindDN, password string) (*Client, error) {
	conn, err := ldap.DialURL(addr)
	if err != nil {
		return nil, fmt.Errorf("directory: dial %s: %w", addr, err)
	}

	if err := conn.Bind(bindDN, password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("directory: bind as %s: %w", bindDN, err)
	}

	return &Client{conn: conn}, nil
}

// Search runs q against the directory and returns the matching entries.
// Aliases are never dereferenced and no size or time limit is imposed.
func (c *Client) Search(q Query) ([]Entry, error) {
	req := ldap.NewSearchRequest(
		q.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		q.Filter,
		q.Attributes,
		nil,
	)

	res, err := c.conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("directory: search %s: %w", q.BaseDN, err)
	}

	entries := make([]Entry, 0, len(res.Entries))
	for _, e := range res.Entries {
		attrs := make(map[string][]string, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Name] = a.Values
		}
		entries = append(entries, Entry{DN: e.DN, Attrs: attrs})
	}
	return entries, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
