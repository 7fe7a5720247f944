package signal

import (
	"time"

	"github.com/vvoice/signaling/internal/app"
	"github.com/vvoice/signaling/internal/protocol"
)

func (ctl *Controller) handlePing(state *app.Conn) {
	ctl.send(state.Transport, protocol.NewPong(time.Now().UnixMilli()))
}
