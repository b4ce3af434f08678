package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/gogpu/flowline"
	"github.com/gogpu/flowline/cache"
)

// DefaultMaxMessageBytes is the read limit of a new Server. It fits a
// 4096 x 4096 field with room for the header.
const DefaultMaxMessageBytes = 4096*4096*8 + maxHeader + headerPrefix

// Server answers generate requests over websocket connections.
//
// Each connection gets its own Generator, so requests from one client never
// supersede another's. Requests on a connection run one at a time; a newer
// request cancels any older one still pending. Fields are cached in one
// FieldCache shared by all connections.
//
// Server is safe for concurrent use.
type Server struct {
	// Upgrader upgrades incoming HTTP requests. Set CheckOrigin on it to
	// accept cross-origin clients.
	Upgrader websocket.Upgrader

	// MaxMessageBytes bounds an incoming message. A larger message closes
	// the connection with CloseMessageTooBig. Zero means no limit.
	MaxMessageBytes int64

	config atomic.Pointer[flowline.Config]
	cache  *cache.FieldCache
}

// NewServer creates a server whose generators use cfg. The cache capacity
// is fixed here; later SetConfig calls do not resize it.
func NewServer(cfg flowline.Config) *Server {
	s := &Server{
		MaxMessageBytes: DefaultMaxMessageBytes,
		cache:           cache.NewFieldCache(cfg.CacheCapacity),
	}
	s.config.Store(&cfg)
	return s
}

// SetConfig replaces the configuration used by connections opened from now
// on. Open connections keep theirs.
func (s *Server) SetConfig(cfg flowline.Config) {
	s.config.Store(&cfg)
}

// Cache returns the field cache shared by all connections.
func (s *Server) Cache() *cache.FieldCache {
	return s.cache
}

// ServeHTTP upgrades the request and serves frames until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		flowline.Logger().Warn("worker: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	defer conn.Close()
	if s.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.MaxMessageBytes)
	}

	gen := flowline.NewGenerator(flowline.WithConfig(*s.config.Load()), flowline.WithCache(s.cache))
	defer gen.Close()

	c := &serverConn{conn: conn, gen: gen, limit: s.MaxMessageBytes}
	c.serve(r.Context())
}

type serverConn struct {
	conn  *websocket.Conn
	gen   *flowline.Generator
	limit int64

	writeMu sync.Mutex
}

func (c *serverConn) serve(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	prevCancel := context.CancelFunc(func() {})
	prevDone := make(chan struct{})
	close(prevDone)
	defer func() { prevCancel() }()

	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				flowline.Logger().Warn("worker: message too large", "limit", c.limit)
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				flowline.Logger().Warn("worker: read failed", "err", err)
			}
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}

		frame, err := Decode(msg)
		if err != nil {
			flowline.Logger().Warn("worker: bad frame", "err", err)
			c.write(ErrorFrame(0, err))
			continue
		}
		req, err := frame.Request()
		if err != nil {
			c.write(ErrorFrame(frame.Header.Version, err))
			continue
		}

		switch frame.Header.Kind {
		case KindPut:
			if req.Field == nil || req.FieldID == "" {
				c.write(ErrorFrame(frame.Header.Version, flowline.ErrNoField))
				continue
			}
			c.gen.Cache().Put(req.FieldID, req.Field)
		case KindGenerate:
			prevCancel()
			reqCtx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			wait := prevDone
			prevCancel, prevDone = cancel, done

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer close(done)
				defer cancel()
				<-wait
				c.generate(reqCtx, frame.Header.Version, req)
			}()
		default:
			c.write(ErrorFrame(frame.Header.Version, errors.New("worker: unexpected frame kind "+string(frame.Header.Kind))))
		}
	}
}

func (c *serverConn) generate(ctx context.Context, version uint64, req flowline.Request) {
	if ctx.Err() != nil {
		flowline.Logger().Debug("worker: request superseded", "version", version)
		return
	}
	res, err := c.gen.Generate(ctx, req)
	switch {
	case ctx.Err() != nil, errors.Is(err, flowline.ErrStale):
		flowline.Logger().Debug("worker: request superseded", "version", version)
	case err != nil:
		c.write(ErrorFrame(version, err))
	default:
		c.write(ResultFrame(version, res))
	}
}

func (c *serverConn) write(f Frame) {
	b, err := Encode(f)
	if err != nil {
		flowline.Logger().Warn("worker: encode failed", "err", err)
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		flowline.Logger().Warn("worker: write failed", "err", err)
	}
}
