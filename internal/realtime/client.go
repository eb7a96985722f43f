package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/veda-classroom/backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// BankLoader fetches a question bank for ws-initiated AI quizzes.
type BankLoader interface {
	GetQuestionBank(ctx context.Context, id uuid.UUID) (*models.QuestionBank, error)
}

// Client represents a single WebSocket connection in a class room.
type Client struct {
	ID      string
	ClassID uuid.UUID
	UserID  uuid.UUID
	Role    string
	hub     *Hub
	coord   *Coordinator
	banks   BankLoader
	conn    *websocket.Conn
	send    chan Envelope
	logger  *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, coord *Coordinator, banks BankLoader, logger *zap.Logger, jwtValidate func(token string) (userID, role string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		classIDStr := c.Query("class_id")
		token := c.Query("token")
		if classIDStr == "" || token == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "class_id and token required"})
			return
		}
		classID, err := uuid.Parse(classIDStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class_id"})
			return
		}
		userIDStr, role, err := jwtValidate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, _ := uuid.Parse(userIDStr)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:      uuid.New().String(),
			ClassID: classID,
			UserID:  userID,
			Role:    role,
			hub:     hub,
			coord:   coord,
			banks:   banks,
			conn:    conn,
			send:    make(chan Envelope, 256),
			logger:  logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.coord.HandleLeave(context.Background(), c.ClassID, c.ID)
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg Envelope
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.dispatch(msg)
	}
}

// dispatch routes one inbound event to its coordinator handler. The
// connection's class id always overrides whatever the payload claims,
// so a client can never act on a room it did not connect to.
func (c *Client) dispatch(msg Envelope) {
	ctx := context.Background()

	switch msg.Event {
	case EventJoinClass:
		p, err := decode[JoinPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		if p.ParticipantID == "" {
			if c.Role == string(models.RoleTeacher) {
				p.ParticipantID = TeacherMarker
			} else {
				p.ParticipantID = c.UserID.String()
			}
		}
		c.coord.HandleJoin(ctx, c.ID, p)

	case EventRequestToJoin:
		p, err := decode[JoinPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		if p.ParticipantID == "" {
			p.ParticipantID = c.UserID.String()
		}
		c.coord.HandleRequestToJoin(ctx, c.ID, p)

	case EventApprove:
		if c.Role != string(models.RoleTeacher) {
			return
		}
		p, err := decode[ApprovePayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleApprove(ctx, p)

	case EventLeaveClass:
		c.coord.HandleLeave(ctx, c.ClassID, c.ID)

	case EventAttention:
		p, err := decode[AttentionPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleAttention(ctx, p)

	case EventTabSwitch:
		p, err := decode[TabSwitchPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleTabSwitch(ctx, p)

	case EventStudentAbsent:
		p, err := decode[AbsentPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleStudentAbsent(ctx, p)

	case EventPointsUpdate:
		p, err := decode[PointsPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandlePointsUpdate(ctx, p)

	case EventRaiseHand:
		p, err := decode[RaiseHandPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleRaiseHand(ctx, p)

	case EventNewQuiz:
		if c.Role != string(models.RoleTeacher) {
			return
		}
		c.coord.HandleNewQuiz(c.ClassID, json.RawMessage(msg.Data))

	case EventQuizResponse:
		p, err := decode[QuizResponsePayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleQuizResponse(ctx, p)

	case EventAIQuizAnswer:
		p, err := decode[QuizResponsePayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleAIQuizResponse(ctx, p)

	case EventStartAIQuiz:
		if c.Role != string(models.RoleTeacher) || c.banks == nil {
			return
		}
		p, err := decode[StartAIQuizPayload](msg.Data)
		if err != nil {
			return
		}
		bank, err := c.banks.GetQuestionBank(ctx, p.BankID)
		if err != nil {
			c.hub.SendToConn(c.ClassID, c.ID, "ai_quiz_error", map[string]string{"message": "question bank not found"})
			return
		}
		if err := c.coord.StartAIQuiz(ctx, c.ClassID, bank); err != nil {
			c.hub.SendToConn(c.ClassID, c.ID, "ai_quiz_error", map[string]string{"message": err.Error()})
		}

	case EventSendMessage:
		p, err := decode[ChatPayload](msg.Data)
		if err != nil {
			return
		}
		p.ClassID = c.ClassID
		c.coord.HandleChat(p)

	default:
		// ignore
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
