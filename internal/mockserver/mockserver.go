// Package mockserver is a stand-in backend: it answers on /ws with canned
// Russian phrases while audio arrives and serves the REST collaborators.
package mockserver

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

var phrases = []string{
	"Добрый день, коллеги!",
	"Давайте обсудим новый проект",
	"Какие у нас планы на следующую неделю?",
	"Мне кажется, это отличная идея",
	"Нужно подготовить презентацию",
	"Как продвигается работа над задачей?",
	"Есть интересное предложение",
	"Давайте рассмотрим другие варианты",
	"Это требует дополнительного обсуждения",
	"Согласен с предыдущим оратором",
}

var summaries = []string{
	"Обсуждение нового проекта и планирование задач",
	"Анализ текущей ситуации и определение приоритетов",
	"Распределение ответственности и сроков выполнения",
	"Презентация идей и предложений по улучшению",
	"Подведение итогов и постановка новых целей",
}

const writeWait = 10 * time.Second

type Config struct {
	Addr           string
	PhraseInterval time.Duration
	// JSON sends {"time","text","timestamp"} instead of plain text.
	JSON       bool
	SampleRate int
	Seed       int64
}

func DefaultConfig() Config {
	return Config{
		Addr:           "127.0.0.1:8000",
		PhraseInterval: 3 * time.Second,
		SampleRate:     16000,
	}
}

type Server struct {
	cfg      Config
	echo     *echo.Echo
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

func New(cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.PhraseInterval <= 0 {
		cfg.PhraseInterval = def.PhraseInterval
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Server{
		cfg:    cfg,
		echo:   echo.New(),
		logger: logger.Named("mockserver"),
		rng:    rand.New(rand.NewSource(seed)),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
		},
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "hyprcaptions-mock"})
	})
	s.echo.GET("/ws", s.handleWS)

	api := s.echo.Group("/api")
	api.POST("/translate", s.handleTranslate)
	api.POST("/summarize", s.handleSummarize)
	api.POST("/tts", s.handleTTS)
	api.GET("/summaries", s.handleSummaries)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("mock backend listening", zap.String("addr", s.cfg.Addr))
	if err := s.echo.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type summarizeRequest struct {
	Content string `json:"content"`
}

type ttsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type phraseMessage struct {
	Time      string `json:"time"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil || req.TargetLang == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text, source_lang and target_lang are required"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"translation": fmt.Sprintf("[%s] %s", req.TargetLang, req.Text),
	})
}

func (s *Server) handleSummarize(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request"})
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": s.pick(summaries)})
}

func (s *Server) handleTTS(c echo.Context) error {
	var req ttsRequest
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
	}
	return c.Blob(http.StatusOK, "audio/wav", silentWAV(s.cfg.SampleRate, 250*time.Millisecond))
}

func (s *Server) handleSummaries(c echo.Context) error {
	s.mu.Lock()
	n := 2 + s.rng.Intn(2)
	idx := s.rng.Perm(len(summaries))[:n]
	s.mu.Unlock()

	out := make([]string, n)
	for i, j := range idx {
		out[i] = summaries[j]
	}
	return c.JSON(http.StatusOK, map[string][]string{"summaries": out})
}

func (s *Server) handleWS(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	id := uuid.NewString()
	log := s.logger.With(zap.String("conn", id))
	log.Info("client connected", zap.String("remote", c.RealIP()))

	var samples atomic.Int64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				log.Info("client disconnected", zap.Error(err))
				return
			}
			if mt == websocket.BinaryMessage {
				samples.Add(int64(len(data) / 2))
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.PhraseInterval)
	defer ticker.Stop()

	var sent int64
	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			total := samples.Load()
			if total == sent {
				continue
			}
			payload := s.phrase(sent, total)
			sent = total

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warn("write failed", zap.Error(err))
				return nil
			}
			log.Debug("phrase sent", zap.ByteString("payload", payload))
		}
	}
}

// phrase builds the message covering samples [from, to).
func (s *Server) phrase(from, to int64) []byte {
	text := s.pick(phrases)
	if !s.cfg.JSON {
		return []byte(text)
	}
	rate := int64(s.cfg.SampleRate)
	msg := phraseMessage{
		Time:      fmt.Sprintf("%s-%s", clock(from/rate), clock(to/rate)),
		Text:      text,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	b, _ := json.Marshal(msg)
	return b
}

func (s *Server) pick(list []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return list[s.rng.Intn(len(list))]
}

// clock formats seconds as MM:SS.
func clock(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// silentWAV returns a mono 16-bit PCM WAV file of the given length.
func silentWAV(rate int, d time.Duration) []byte {
	samples := int(int64(rate) * int64(d) / int64(time.Second))
	dataLen := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}
