package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiracore/jirapulse/internal/artifact"
	"github.com/kiracore/jirapulse/internal/dashboard"
	"github.com/kiracore/jirapulse/internal/jira"
	"github.com/kiracore/jirapulse/internal/report"
)

// Error kinds.
const (
	KindAuth      = "auth"
	KindConfig    = "config"
	KindTransport = "transport"
	KindNotFound  = "not_found"
	KindInvalid   = "invalid"
)

var kindMessages = map[string]string{
	KindAuth:      "Ошибка авторизации в Jira. Проверьте email и API токен.",
	KindConfig:    "Ошибка конфигурации",
	KindTransport: "Не удалось получить данные из Jira",
	KindNotFound:  "Не найдено",
	KindInvalid:   "Некорректный запрос",
}

// classified is the JSON body of an error response.
type classified struct {
	Status  int    `json:"-"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`

	AvailableBoards []dashboard.BoardRef `json:"availableBoards,omitempty"`
	SuggestedBoard  *dashboard.BoardRef  `json:"suggestedBoard,omitempty"`
	Hint            string               `json:"hint,omitempty"`
}

func classify(err error) classified {
	c := classified{Error: err.Error()}

	var nsb *dashboard.NoScrumBoardError
	var wrong *dashboard.WrongBoardError
	switch {
	case errors.As(err, &nsb):
		c.Status, c.Kind = http.StatusNotFound, KindConfig
		c.AvailableBoards = nsb.AvailableBoards
	case errors.As(err, &wrong):
		c.Status, c.Kind = http.StatusBadRequest, KindConfig
		c.SuggestedBoard = &wrong.SuggestedBoard
		c.Hint = wrong.Hint()
	case errors.Is(err, jira.ErrUnauthorized):
		c.Status, c.Kind = http.StatusUnauthorized, KindAuth
	case errors.Is(err, dashboard.ErrNotConfigured):
		c.Status, c.Kind = http.StatusInternalServerError, KindConfig
	case errors.Is(err, dashboard.ErrInvalidInput), errors.Is(err, report.ErrUnknownKind), errors.Is(err, errInvalid):
		c.Status, c.Kind = http.StatusBadRequest, KindInvalid
	case errors.Is(err, dashboard.ErrNotFound), errors.Is(err, artifact.ErrNotFound), errors.Is(err, jira.ErrNotFound):
		c.Status, c.Kind = http.StatusNotFound, KindNotFound
	case errors.Is(err, context.DeadlineExceeded):
		c.Status, c.Kind = http.StatusGatewayTimeout, KindTransport
	default:
		c.Status, c.Kind = http.StatusBadGateway, KindTransport
	}
	c.Message = kindMessages[c.Kind]
	if c.Kind == KindConfig && (nsb != nil || wrong != nil) {
		c.Message = err.Error()
	}
	return c
}

// errInvalid marks request validation failures.
var errInvalid = errors.New("invalid request")

func (s *Server) fail(c *gin.Context, err error) {
	cl := classify(err)
	ev := s.log.Warn()
	if cl.Status >= http.StatusInternalServerError {
		ev = s.log.Error()
	}
	ev.Err(err).Str("kind", cl.Kind).Str("path", c.FullPath()).Msg("request failed")
	c.AbortWithStatusJSON(cl.Status, cl)
}
