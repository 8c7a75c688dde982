package signal

import (
	"github.com/dkeye/Candles/internal/core"
	"github.com/dkeye/Candles/internal/protocol"
)

func (ctl *SignalWSController) handlePing(id core.ConnID) {
	ctl.Orch.Send(id, protocol.EventPong, struct{}{})
}
