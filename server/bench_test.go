package server

import (
	"fmt"
	"testing"

	"whiteboard/protocol"
	"whiteboard/util"
)

// BenchmarkBroadcast measures fan-out of one draw to every user on a
// board.
func BenchmarkBroadcast(b *testing.B) {
	for _, n := range []int{1, 16, 64} {
		b.Run(fmt.Sprintf("peers=%d", n), func(b *testing.B) {
			a := NewAuthority(nil, util.NewLogger(0))
			peers := make([]*peer, n)
			for i := range peers {
				peers[i] = newPeer(nopConn{}, 1<<16, util.NewLogger(0), nil)
				a.handle(peers[i], protocol.CheckAndAddUser{User: fmt.Sprintf("u%d", i), Board: DefaultBoard})
			}
			defer func() {
				for _, p := range peers {
					p.finish()
				}
			}()

			draw := protocol.Draw{Board: DefaultBoard, Command: protocol.DrawLineSegment{
				X1: 1, Y1: 2, X2: 300, Y2: 400, Color: protocol.Black, Width: 2}}
			wipe := protocol.Draw{Board: DefaultBoard, Command: protocol.Clear{}}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				// Keep the board log from growing with b.N.
				if i%1024 == 1023 {
					a.handle(peers[0], wipe)
					continue
				}
				a.handle(peers[0], draw)
			}
		})
	}
}
