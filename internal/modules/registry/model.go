// README: Connection registry types.
package registry

import "context"

// Channel is a live duplex connection to a driver. Send delivers one outbound
// directive; implementations must be safe for concurrent use.
type Channel interface {
	Send(ctx context.Context, v any) error
}
