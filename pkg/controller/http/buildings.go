package http

import (
	"encoding/json"
	"net/http"

	"github.com/contech-ims/binsight/pkg/service/geocode"
	"github.com/contech-ims/binsight/pkg/service/source"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/contech-ims/binsight/pkg/utils/errutil"
	"github.com/contech-ims/binsight/pkg/utils/safe"
	"github.com/m-mizutani/goerr/v2"
)

type buildingResponse struct {
	Number         string `json:"number"`
	Address        string `json:"address"`
	City           string `json:"city"`
	COCount        int    `json:"coCount"`
	ViolationCount int    `json:"violationCount"`
	IndexState     string `json:"indexState,omitempty"`
	VerifiedCount  int    `json:"verifiedCount,omitempty"`
}

func buildingsHandler(src *source.Service, usecases *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		buildings, err := src.Buildings(ctx)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to list buildings"),
				http.StatusInternalServerError, "failed to list buildings")
			return
		}

		resp := make([]buildingResponse, 0, len(buildings))
		for _, b := range buildings {
			item := buildingResponse{
				Number:         b.Number,
				Address:        b.Address,
				City:           b.City,
				COCount:        b.COCount,
				ViolationCount: b.ViolationCount,
			}
			status, err := usecases.Index.Status(ctx, b.Number)
			if err != nil {
				errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError, "failed to list buildings")
				return
			}
			if status != nil {
				item.IndexState = status.State.String()
				item.VerifiedCount = status.VerifiedCount
			}
			resp = append(resp, item)
		}

		data, err := json.Marshal(resp)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal buildings response"),
				http.StatusInternalServerError, "failed to list buildings")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		safe.Write(ctx, w, data)
	}
}

func geocodeHandler(geocoder *geocode.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		address := r.URL.Query().Get("address")
		if address == "" {
			errutil.HandleHTTP(ctx, w, goerr.New("address query parameter is missing"),
				http.StatusBadRequest, "address is required")
			return
		}

		loc, err := geocoder.Geocode(ctx, address)
		if err != nil {
			errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError, "failed to geocode address")
			return
		}

		data, err := json.Marshal(loc)
		if err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal geocode response"),
				http.StatusInternalServerError, "failed to geocode address")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		safe.Write(ctx, w, data)
	}
}
