package ims_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contech-ims/binsight/pkg/service/ims"
	"github.com/m-mizutani/gt"
)

func TestCOByBIN(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gt.Value(t, r.Method).Equal(http.MethodPost)
		gt.Value(t, r.Header.Get("Content-Type")).Equal("application/json")

		body, err := io.ReadAll(r.Body)
		gt.NoError(t, err).Required()
		gt.NoError(t, json.Unmarshal(body, &gotBody)).Required()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bin_num":"1001620","coa_records":[]}`))
	}))
	defer srv.Close()

	client := ims.New(ims.WithBaseURL(srv.URL))
	data, err := client.COByBIN(context.Background(), "1001620")
	gt.NoError(t, err).Required()

	gt.Value(t, gotPath).Equal("/coa_by_bin")
	gt.Value(t, gotBody["bin_number"]).Equal("1001620")
	gt.String(t, string(data)).Contains("coa_records")
}

func TestViolationsByBIN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.URL.Path).Equal("/violation_by_bin")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := ims.New(ims.WithBaseURL(srv.URL))
	data, err := client.ViolationsByBIN(context.Background(), "1001620")
	gt.NoError(t, err).Required()
	gt.Value(t, string(data)).Equal(`[]`)
}

func TestNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := ims.New(ims.WithBaseURL(srv.URL))
	_, err := client.COByBIN(context.Background(), "1001620")
	gt.Error(t, err)
}

func TestEmptyBINRejected(t *testing.T) {
	client := ims.New()
	_, err := client.COByBIN(context.Background(), "")
	gt.Error(t, err)
}
