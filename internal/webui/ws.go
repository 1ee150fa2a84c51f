package webui

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"csvviz/internal/aggregate"
	"csvviz/internal/filter"
	"csvviz/internal/logging"
	"csvviz/internal/pipeline"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// wsInbound replaces the session's predicates and, when Chart is set, its
// chart options. Filters nil leaves the predicates alone; an empty list
// clears them.
type wsInbound struct {
	Filters    *[]filter.Predicate `json:"filters,omitempty"`
	Chart      *aggregate.Options  `json:"chart,omitempty"`
	Page       int                 `json:"page,omitempty"`
	LegendPage int                 `json:"legend_page,omitempty"`
}

type wsOutbound struct {
	Type    string             `json:"type"`
	View    *viewResponse      `json:"view,omitempty"`
	Filters []filter.Predicate `json:"filters,omitempty"`
	Message string             `json:"message,omitempty"`
}

// handleWS answers every inbound message with a recomputed view. The first
// view is sent right after the upgrade.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writeCh := make(chan wsOutbound, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	logging.Logger().Debug("webui: ws connected", "session", id)
	push(writeCh, viewMessage(sess, nil, 0, 0))

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			logging.Logger().Debug("webui: ws closed", "session", id, "err", err)
			return
		}
		push(writeCh, s.apply(sess, in))
	}
}

// apply installs in on sess and returns the message to send back.
func (s *Server) apply(sess *pipeline.Session, in wsInbound) wsOutbound {
	var preds []filter.Predicate
	if in.Filters != nil {
		if err := checkFields(sess, *in.Filters); err != nil {
			return wsOutbound{Type: "error", Message: err.Error()}
		}
	}
	if in.Chart != nil {
		if err := checkAxes(sess, *in.Chart); err != nil {
			return wsOutbound{Type: "error", Message: err.Error()}
		}
	}
	if in.Filters != nil {
		var err error
		if preds, err = sess.SetFilters(*in.Filters); err != nil {
			return wsOutbound{Type: "error", Message: err.Error()}
		}
	}
	if in.Chart != nil {
		sess.SetOptions(*in.Chart)
	}
	return viewMessage(sess, preds, in.Page, in.LegendPage)
}

func viewMessage(sess *pipeline.Session, preds []filter.Predicate, page, legendPage int) wsOutbound {
	v, err := sess.View()
	if err != nil {
		return wsOutbound{Type: "error", Message: err.Error()}
	}
	vr := buildView(v, sess.Options(), max(page, 0), max(legendPage, 0))
	return wsOutbound{Type: "view", View: &vr, Filters: preds}
}

// push queues out, dropping the oldest pending message when the writer is
// behind; only the latest view matters.
func push(ch chan wsOutbound, out wsOutbound) {
	select {
	case ch <- out:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- out:
	default:
	}
}
