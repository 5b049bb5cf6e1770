package api

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatherhq/gather/internal/models"
	"github.com/gatherhq/gather/internal/snowflake"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialComments(t *testing.T, env *testEnv, token, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/v1/activities/comments/stream" + query
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) channelMessage {
	t.Helper()
	require := require.New(t)
	require.NoError(conn.SetReadDeadline(time.Now().Add(5 * time.Second)))
	var msg channelMessage
	require.NoError(conn.ReadJSON(&msg))
	return msg
}

func TestCommentsStream(t *testing.T) {
	env := newTestEnv(t)
	host, hostToken := mockAccount(t, env, "host")
	_, guestToken := mockAccount(t, env, "guest")
	date := time.Now().AddDate(0, 0, 7).Truncate(time.Second).UTC()
	id := mockActivityRequest(t, env, hostToken, "Quiz", date)

	activityID, err := snowflake.Parse(id)
	require.NoError(t, err)
	_, err = models.NewComments(env.DB).Create(activityID, host.ActorID, "doors open at seven")
	require.NoError(t, err)

	t.Run("JoinWithoutActivityID", func(t *testing.T) {
		require := require.New(t)
		conn, resp, err := dialComments(t, env, hostToken, "")
		require.ErrorIs(err, websocket.ErrBadHandshake)
		require.Nil(conn)
		require.Equal(http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("JoinUnknownActivity", func(t *testing.T) {
		require := require.New(t)
		conn, resp, err := dialComments(t, env, hostToken, "?activity_id=12345")
		require.ErrorIs(err, websocket.ErrBadHandshake)
		require.Nil(conn)
		require.Equal(http.StatusNotFound, resp.StatusCode)
	})
	t.Run("JoinWithoutToken", func(t *testing.T) {
		require := require.New(t)
		conn, resp, err := dialComments(t, env, "", "?activity_id="+id)
		require.ErrorIs(err, websocket.ErrBadHandshake)
		require.Nil(conn)
		require.Equal(http.StatusUnauthorized, resp.StatusCode)
	})
	t.Run("HistoryAndBroadcast", func(t *testing.T) {
		require := require.New(t)

		hostConn, _, err := dialComments(t, env, hostToken, "?activity_id="+id)
		require.NoError(err)
		defer hostConn.Close()

		// the joining channel receives the history, once
		frame := readFrame(t, hostConn)
		require.Equal("history", frame.Type)
		require.Len(frame.Comments, 1)
		require.Equal("doors open at seven", frame.Comments[0].Body)
		require.Equal("host", frame.Comments[0].AuthorName)

		guestConn, _, err := dialComments(t, env, guestToken, "?activity_id="+id)
		require.NoError(err)
		defer guestConn.Close()
		require.Equal("history", readFrame(t, guestConn).Type)

		// a publish reaches every subscriber on the topic, sender included
		err = guestConn.WriteJSON(channelMessage{Type: "comment", Body: "see you there"})
		require.NoError(err)

		for _, conn := range []*websocket.Conn{hostConn, guestConn} {
			frame := readFrame(t, conn)
			require.Equal("comment", frame.Type)
			require.NotNil(frame.Comment)
			require.Equal("see you there", frame.Comment.Body)
			require.Equal("guest", frame.Comment.AuthorName)
		}
	})
	t.Run("EmptyBodyRejectedToSenderOnly", func(t *testing.T) {
		require := require.New(t)

		hostConn, _, err := dialComments(t, env, hostToken, "?activity_id="+id)
		require.NoError(err)
		defer hostConn.Close()
		readFrame(t, hostConn)

		guestConn, _, err := dialComments(t, env, guestToken, "?activity_id="+id)
		require.NoError(err)
		defer guestConn.Close()
		readFrame(t, guestConn)

		err = guestConn.WriteJSON(channelMessage{Type: "comment", Body: "   "})
		require.NoError(err)
		frame := readFrame(t, guestConn)
		require.Equal("error", frame.Type)
		require.NotEmpty(frame.Error)

		// the rejection stays with the sender; the next frame anyone else
		// sees is the next valid comment
		err = guestConn.WriteJSON(channelMessage{Type: "comment", Body: "fixed it"})
		require.NoError(err)
		frame = readFrame(t, hostConn)
		require.Equal("comment", frame.Type)
		require.Equal("fixed it", frame.Comment.Body)
	})
	t.Run("CommentIsPersisted", func(t *testing.T) {
		require := require.New(t)
		comments, err := models.NewComments(env.DB).ForActivity(activityID)
		require.NoError(err)
		var bodies []string
		for _, c := range comments {
			bodies = append(bodies, c.Body)
		}
		require.Equal([]string{"doors open at seven", "see you there", "fixed it"}, bodies)
	})
}

func TestCommentsBroadcastOrder(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	_, hostToken := mockAccount(t, env, "host")
	_, guestToken := mockAccount(t, env, "guest")
	date := time.Now().AddDate(0, 0, 7).Truncate(time.Second).UTC()
	id := mockActivityRequest(t, env, hostToken, "Book Club", date)

	hostConn, _, err := dialComments(t, env, hostToken, "?activity_id="+id)
	require.NoError(err)
	defer hostConn.Close()
	require.Equal("history", readFrame(t, hostConn).Type)

	guestConn, _, err := dialComments(t, env, guestToken, "?activity_id="+id)
	require.NoError(err)
	defer guestConn.Close()
	require.Equal("history", readFrame(t, guestConn).Type)

	// two writers race; every subscriber must still observe the comments
	// in the order they were persisted
	const each = 8
	var wg sync.WaitGroup
	for prefix, conn := range map[string]*websocket.Conn{"h": hostConn, "g": guestConn} {
		wg.Add(1)
		go func(prefix string, conn *websocket.Conn) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				if err := conn.WriteJSON(channelMessage{Type: "comment", Body: fmt.Sprintf("%s%d", prefix, i)}); err != nil {
					return
				}
			}
		}(prefix, conn)
	}
	wg.Wait()

	observe := func(conn *websocket.Conn) []snowflake.ID {
		var ids []snowflake.ID
		for i := 0; i < 2*each; i++ {
			frame := readFrame(t, conn)
			require.Equal("comment", frame.Type)
			id, err := snowflake.Parse(frame.Comment.ID)
			require.NoError(err)
			ids = append(ids, id)
		}
		return ids
	}

	hostSaw := observe(hostConn)
	guestSaw := observe(guestConn)
	require.Equal(hostSaw, guestSaw)
	for i := 1; i < len(hostSaw); i++ {
		require.Less(uint64(hostSaw[i-1]), uint64(hostSaw[i]))
	}
}

func TestCommentsKeepAlive(t *testing.T) {
	oldWait, oldPing := commentPongWait, commentPingPeriod
	commentPongWait, commentPingPeriod = 150*time.Millisecond, 50*time.Millisecond
	defer func() { commentPongWait, commentPingPeriod = oldWait, oldPing }()

	require := require.New(t)
	env := newTestEnv(t)
	_, token := mockAccount(t, env, "host")
	date := time.Now().AddDate(0, 0, 7).Truncate(time.Second).UTC()
	id := mockActivityRequest(t, env, token, "Vigil", date)

	conn, _, err := dialComments(t, env, token, "?activity_id="+id)
	require.NoError(err)
	defer conn.Close()

	// reading replies to the server's pings, which keeps the read
	// deadline fresh across many pong windows
	frames := make(chan channelMessage, 4)
	go func() {
		defer close(frames)
		for {
			var msg channelMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			frames <- msg
		}
	}()
	require.Equal("history", (<-frames).Type)

	time.Sleep(4 * commentPongWait)

	require.NoError(conn.WriteJSON(channelMessage{Type: "comment", Body: "still here"}))
	select {
	case frame, ok := <-frames:
		require.True(ok, "connection dropped while the client was answering pings")
		require.Equal("comment", frame.Type)
		require.Equal("still here", frame.Comment.Body)
	case <-time.After(2 * time.Second):
		require.Fail("no broadcast received")
	}
}
