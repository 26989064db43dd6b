package ws_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/kam/internal/adapters/http/ws"
	"github.com/okian/kam/internal/adapters/mq/pubsub"
	"github.com/okian/kam/internal/adapters/repository"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type tokens map[string]access.Principal

func (t tokens) Verify(raw string) (access.Principal, error) {
	p, ok := t[raw]
	if !ok {
		return access.Principal{}, errors.New("bad token")
	}
	return p, nil
}

func dial(srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestChangeFeed(t *testing.T) {
	Convey("Given a websocket handler on a change broker", t, func() {
		broker := pubsub.NewBroker[repository.Change]()
		verifier := tokens{
			"admin": {UserID: "a", Role: model.RoleAdmin},
			"emp":   {UserID: "e", Role: model.RoleEmployee, POC: "Asha Rao"},
		}
		h := ws.NewHandler(broker, verifier, []string{"*"}, nil)
		mux := http.NewServeMux()
		mux.Handle("GET /api/ws", h)
		srv := httptest.NewServer(mux)
		defer srv.Close()
		defer broker.Close()

		waitSubscribers := func(n int) {
			deadline := time.Now().Add(2 * time.Second)
			for broker.Subscribers() < n && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(broker.Subscribers(), ShouldEqual, n)
		}

		Convey("When an admin connects and a change is published", func() {
			conn, _, err := dial(srv, "admin")
			So(err, ShouldBeNil)
			defer conn.Close()
			waitSubscribers(1)

			broker.Publish(repository.Change{
				Collection: model.CollectionCalls, Action: model.ActionUpsert, Key: "U1", Version: 3,
			})

			Convey("Then the client receives it with its key", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var msg ws.Message
				So(conn.ReadJSON(&msg), ShouldBeNil)
				So(msg.Type, ShouldEqual, "change")
				So(msg.Collection, ShouldEqual, model.CollectionCalls)
				So(msg.Key, ShouldEqual, "U1")
				So(msg.Version, ShouldEqual, 3)
				So(h.Clients(), ShouldEqual, 1)
			})
		})

		Convey("When an employee connects", func() {
			conn, _, err := dial(srv, "emp")
			So(err, ShouldBeNil)
			defer conn.Close()
			waitSubscribers(1)

			broker.Publish(repository.Change{Collection: model.CollectionUsers, Action: model.ActionUpsert, Key: "u9"})
			broker.Publish(repository.Change{Collection: model.CollectionQueries, Action: model.ActionUpsert, Key: "q1"})

			Convey("Then user changes are hidden and keys are stripped", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				var msg ws.Message
				So(conn.ReadJSON(&msg), ShouldBeNil)
				So(msg.Collection, ShouldEqual, model.CollectionQueries)
				So(msg.Key, ShouldBeEmpty)
			})
		})

		Convey("When the token is invalid", func() {
			_, resp, err := dial(srv, "nope")

			Convey("Then the handshake is refused", func() {
				So(err, ShouldNotBeNil)
				So(resp, ShouldNotBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}
