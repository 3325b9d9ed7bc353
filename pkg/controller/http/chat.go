package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/contech-ims/binsight/pkg/utils/errutil"
	"github.com/contech-ims/binsight/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

type chatRequest struct {
	Query          string `json:"query"`
	BuildingNumber string `json:"buildingNumber,omitempty"`
	Stream         bool   `json:"stream,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
	Grounded bool   `json:"grounded"`
}

func chatHandler(query *usecase.QueryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode chat request"),
				http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Stream {
			streamChat(w, r, query, &req)
			return
		}

		exchange, err := query.Answer(ctx, req.Query, req.BuildingNumber)
		if err != nil {
			writeChatError(w, r, err)
			return
		}

		data, err := json.Marshal(chatResponse{
			Response: exchange.Answer,
			Grounded: exchange.Grounded,
		})
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal chat response"),
				http.StatusInternalServerError, "failed to process query")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		safe.Write(ctx, w, data)
	}
}

func streamChat(w http.ResponseWriter, r *http.Request, query *usecase.QueryUseCase, req *chatRequest) {
	ctx := r.Context()

	_, stream, err := query.AnswerStream(ctx, req.Query, req.BuildingNumber)
	if err != nil {
		writeChatError(w, r, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	for fragment := range stream {
		safe.Write(ctx, w, []byte(fragment))
		if flusher != nil {
			flusher.Flush()
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// writeChatError maps pipeline errors to the HTTP contract: validation
// failures are 400 with the reason, anything upstream is a generic 500
// so provider details never reach the client.
func writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	if errors.Is(err, usecase.ErrEmptyQuestion) {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest, "query is required")
		return
	}
	errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError, "failed to process query")
}
