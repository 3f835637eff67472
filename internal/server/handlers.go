package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sandflake/pkg/idgen/core"
	"sandflake/pkg/idgen/sandflake"
)

const (
	defaultBatchCount = 1
	maxBatchCount     = 1000
)

type idsResponse struct {
	IDs []sandflake.ID `json:"ids"`
}

type objectIDResponse struct {
	ID    sandflake.ID `json:"id"`
	Class string       `json:"class"`
}

type decodeResponse struct {
	ID              sandflake.ID `json:"id"`
	Timestamp       int64        `json:"timestamp"`
	Time            string       `json:"time"`
	NodeID          int64        `json:"node_id"`
	ObjectClass     string       `json:"object_class"`
	ObjectClassCode uint8        `json:"object_class_code"`
	Sequence        uint64       `json:"sequence"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// nextIDs GET /v1/ids?count=n
func (s *Server) nextIDs(c *gin.Context) {
	count := defaultBatchCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBatchCount {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "count must be an integer between 1 and " + strconv.Itoa(maxBatchCount),
			})
			return
		}
		count = n
	}

	var (
		ids []sandflake.ID
		err error
	)
	if count == 1 {
		var id sandflake.ID
		if id, err = s.gen.NextID(); err == nil {
			ids = []sandflake.ID{id}
		}
	} else {
		ids, err = s.gen.NextIDBatch(count)
	}
	if err != nil {
		s.generatorError(c, err)
		return
	}
	c.JSON(http.StatusOK, idsResponse{IDs: ids})
}

// nextObjectID GET /v1/ids/:class
func (s *Server) nextObjectID(c *gin.Context) {
	class, err := sandflake.ParseObjectClass(c.Param("class"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := s.gen.NextObjectID(class)
	if err != nil {
		s.generatorError(c, err)
		return
	}
	c.JSON(http.StatusOK, objectIDResponse{ID: id, Class: class.String()})
}

// decodeID GET /v1/ids/decode/:id
func (s *Server) decodeID(c *gin.Context) {
	id, err := sandflake.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, decodeResponse{
		ID:              id,
		Timestamp:       id.Timestamp(),
		Time:            id.Time().Format(time.RFC3339Nano),
		NodeID:          id.NodeID().Int64(),
		ObjectClass:     id.ObjectClass().String(),
		ObjectClassCode: uint8(id.ObjectClass()),
		Sequence:        id.Sequence(),
	})
}

// generatorError ErrUnavailable 为暂时性错误返回503，其余返回500
func (s *Server) generatorError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, core.ErrUnavailable) {
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "1")
	}
	s.logger.Error("ID生成失败", zap.Int("status", status), zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
