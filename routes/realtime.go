package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	jsonWT "github.com/kataras/iris/v12/middleware/jwt"

	"github.com/Dhyanvj/BuddyUp/realtime"
	"github.com/Dhyanvj/BuddyUp/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Mobile clients connect from app origins; CORS is enforced at the
	// HTTP layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TripFeed streams change events for one trip over a websocket. Clients
// refetch the trip aggregate on every event.
func TripFeed(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	tripID, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		return
	}
	serveFeed(conn, Hub.Subscribe(realtime.ByTrip(tripID)))
}

// MyFeed streams change events for every trip the user created or
// participates in.
func MyFeed(ctx iris.Context) {
	tok := jsonWT.Get(ctx)
	if tok == nil {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	user := tok.(*utils.AccessToken)

	conn, err := upgrader.Upgrade(ctx.ResponseWriter(), ctx.Request(), nil)
	if err != nil {
		return
	}
	serveFeed(conn, Hub.Subscribe(realtime.Any(
		realtime.ByCreator(user.ID),
		realtime.ByParticipant(user.ID),
	)))
}

// serveFeed pumps events to the socket until either side goes away. The
// subscription is released on every exit path.
func serveFeed(conn *websocket.Conn, sub *realtime.Subscription) {
	defer conn.Close()
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case e, open := <-sub.C:
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
