package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gatherhq/gather/internal/algorithms"
	"github.com/gatherhq/gather/internal/httpx"
	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/snowflake"
	"github.com/gatherhq/gather/internal/to"
	"github.com/go-json-experiment/json"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

// CommentsIndex returns the activity's comment history over plain HTTP.
func CommentsIndex(env *Env, w http.ResponseWriter, r *http.Request) error {
	_, err := env.authenticate(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	comments, err := models.NewComments(env.DB).ForActivity(id)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	serialise := Serialiser{}
	return to.JSON(w, algorithms.Map(comments, serialise.Comment))
}

const commentReadLimit = 64 * 1024

// vars so the timings can be shortened under test
var (
	commentWriteWait  = 10 * time.Second
	commentPongWait   = 60 * time.Second
	commentPingPeriod = commentPongWait * 9 / 10
)

// publishOrder serialises persist and publish per activity so every
// subscriber observes comments in persistence order, and a later history
// replay agrees with what live subscribers saw.
var publishOrder sync.Map

func topicLock(id snowflake.ID) *sync.Mutex {
	mu, _ := publishOrder.LoadOrStore(id, new(sync.Mutex))
	return mu.(*sync.Mutex)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// A channelMessage is a frame on the comment channel. Server to client
// frames are history (once, on join), comment (on every publish to the
// topic) and error (to the sender only, when a publish fails). The only
// client to server frame is comment, carrying the body to publish.
type channelMessage struct {
	Type     string    `json:"type"`
	Body     string    `json:"body,omitempty"`
	Comments []Comment `json:"comments,omitempty"`
	Comment  *Comment  `json:"comment,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// CommentsStream upgrades the connection to a websocket subscribed to one
// activity's comment topic. A join without an activity id is a protocol
// error, rejected before the upgrade.
func CommentsStream(env *Env, w http.ResponseWriter, r *http.Request) error {
	account, err := env.authenticate(r)
	if err != nil {
		return err
	}
	topic := r.URL.Query().Get("activity_id")
	if topic == "" {
		return httpx.Error(http.StatusBadRequest, errors.New("activity_id is required"))
	}
	id, err := snowflake.Parse(topic)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err)
	}
	var activity models.Activity
	if err := env.DB.Select("id").First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.Error(http.StatusNotFound, err)
		}
		return err
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		return nil
	}
	sess := &commentSession{
		env:        env,
		conn:       conn,
		actorID:    account.ActorID,
		activityID: id,
	}
	sess.run()
	return nil
}

type commentSession struct {
	env        *Env
	conn       *websocket.Conn
	actorID    snowflake.ID
	activityID snowflake.ID
}

// run services one subscriber until it disconnects or falls too far
// behind. All writes to the websocket happen on this goroutine.
func (s *commentSession) run() {
	defer s.conn.Close()

	sub := s.env.Registry.Subscribe(s.activityID)
	defer sub.Cancel()

	serialise := Serialiser{}

	// the joining channel, and only it, receives the full history
	history, err := models.NewComments(s.env.DB).ForActivity(s.activityID)
	if err != nil {
		return
	}
	if err := s.write(channelMessage{
		Type:     "history",
		Comments: algorithms.Map(history, serialise.Comment),
	}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	inbound := make(chan channelMessage)
	readErr := make(chan error, 1)
	go s.readLoop(done, inbound, readErr)

	ping := time.NewTicker(commentPingPeriod)
	defer ping.Stop()

	for {
		select {
		case payload, ok := <-sub.C:
			if !ok {
				// cancelled as too slow
				return
			}
			comment, ok := payload.Data.(Comment)
			if !ok {
				continue
			}
			if err := s.write(channelMessage{Type: payload.Event, Comment: &comment}); err != nil {
				return
			}
		case msg := <-inbound:
			if msg.Type != "comment" {
				continue
			}
			mu := topicLock(s.activityID)
			mu.Lock()
			comment, err := models.NewComments(s.env.DB).Create(s.activityID, s.actorID, msg.Body)
			if err == nil {
				s.env.Registry.Publish(s.activityID, "comment", serialise.Comment(*comment))
			}
			mu.Unlock()
			if err != nil {
				// surfaced to the sender only, never broadcast
				if err := s.write(channelMessage{Type: "error", Error: err.Error()}); err != nil {
					return
				}
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(commentWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-readErr:
			return
		}
	}
}

func (s *commentSession) readLoop(done <-chan struct{}, inbound chan<- channelMessage, readErr chan<- error) {
	s.conn.SetReadLimit(commentReadLimit)
	// a peer that stops answering pings is dead; every pong buys it
	// another window
	s.conn.SetReadDeadline(time.Now().Add(commentPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(commentPongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		var msg channelMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		select {
		case inbound <- msg:
		case <-done:
			return
		}
	}
}

func (s *commentSession) write(msg channelMessage) error {
	s.conn.SetWriteDeadline(time.Now().Add(commentWriteWait))
	w, err := s.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := json.MarshalFull(w, msg); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
