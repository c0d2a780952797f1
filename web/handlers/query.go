// Package handlers contains the gin request handlers for the API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KNBS-StatsChat/statschat-ke/config"
	"github.com/KNBS-StatsChat/statschat-ke/generative"
	"github.com/KNBS-StatsChat/statschat-ke/web/format"
)

// SearchRequest is the question payload. LatestFilter accepts "on"/"true"
// to restrict retrieval to publications currently flagged latest, and
// defaults to "on" when omitted.
type SearchRequest struct {
	Question     string   `json:"question" binding:"required"`
	LatestFilter string   `json:"latest_filter"`
	Highlighting *bool    `json:"highlighting"`
	LatestWeight *float64 `json:"latest_weight"`
}

// SearchResponse is the answer payload. References is the reranked
// citation list; when no document clears the confidence gate it is empty
// and Placeholders explains why.
type SearchResponse struct {
	Question     string                 `json:"question"`
	Answer       string                 `json:"answer"`
	AnswerHTML   string                 `json:"answer_html"`
	References   []generative.Candidate `json:"references"`
	Placeholders []string               `json:"placeholders,omitempty"`
	Reasoning    string                 `json:"reasoning,omitempty"`
}

type QueryHandler struct {
	inquirer *generative.Inquirer
	config   *config.Config
	logger   *zap.Logger
}

func NewQueryHandler(inquirer *generative.Inquirer, cfg *config.Config, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{inquirer: inquirer, config: cfg, logger: logger}
}

// Search answers a question against the indexed bulletins.
func (h *QueryHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	// Retrieval is restricted to current editions unless the caller asks
	// for the full archive.
	if req.LatestFilter == "" {
		req.LatestFilter = "on"
	}

	opts := generative.QueryOptions{
		LatestFilter: req.LatestFilter,
		Highlighting: true,
		LatestWeight: h.config.LatestWeight,
	}
	if req.Highlighting != nil {
		opts.Highlighting = *req.Highlighting
	}
	if req.LatestWeight != nil {
		opts.LatestWeight = *req.LatestWeight
	}

	result, err := h.inquirer.MakeQuery(c.Request.Context(), req.Question, opts)
	if err != nil {
		h.logger.Error("Query failed",
			zap.String("question", req.Question),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	references := result.Documents
	if references == nil {
		references = []generative.Candidate{}
	}

	c.JSON(http.StatusOK, SearchResponse{
		Question:     req.Question,
		Answer:       result.Answer,
		AnswerHTML:   format.AnswerToHTML(result.Answer),
		References:   references,
		Placeholders: result.Placeholders,
		Reasoning:    result.Response.Reasoning,
	})
}
