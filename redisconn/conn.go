package redisconn

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/keel/id"
)

// Conn is a connection leased from a Pool. It is owned by one callback for
// the duration of one WithConnection call and must not be retained after the
// callback returns.
type Conn struct {
	redis.Cmdable

	client   Client
	id       id.ConnID
	dialedAt time.Time
}

func newConn(client Client) *Conn {
	return &Conn{
		Cmdable:  client,
		client:   client,
		id:       id.NewConnID(),
		dialedAt: time.Now().UTC(),
	}
}

// ID identifies the underlying connection. A reconnect produces a new ID.
func (c *Conn) ID() id.ConnID { return c.id }

// DialedAt reports when the underlying connection was created.
func (c *Conn) DialedAt() time.Time { return c.dialedAt }
