package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nysenate/geodistrict/internal/model"
)

// districtAssignRequest mirrors the AssignDistricts request body (§6): an
// address or a lat/lon point, plus the flags that steer the pipeline.
type districtAssignRequest struct {
	Addr1        string   `json:"addr1"`
	Addr2        string   `json:"addr2"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Zip5         string   `json:"zip5"`
	Zip4         string   `json:"zip4"`
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	USPSValidate bool     `json:"uspsValidate"`
	SkipGeocode  bool     `json:"skipGeocode"`
	ShowMaps     bool     `json:"showMaps"`
	ShowMembers  bool     `json:"showMembers"`
	Provider     string   `json:"provider"`
	GeoProvider  string   `json:"geoProvider"`
}

func (req districtAssignRequest) toModel() model.DistrictRequest {
	out := model.DistrictRequest{
		Address: model.Address{
			Addr1: req.Addr1,
			Addr2: req.Addr2,
			City:  req.City,
			State: req.State,
			Zip5:  req.Zip5,
			Zip4:  req.Zip4,
		},
		USPSValidate: req.USPSValidate,
		SkipGeocode:  req.SkipGeocode,
		ShowMaps:     req.ShowMaps,
		ShowMembers:  req.ShowMembers,
		Provider:     req.Provider,
		GeoProvider:  req.GeoProvider,
	}
	if req.Lat != nil && req.Lon != nil {
		out.Point = &model.LatLon{Lat: *req.Lat, Lon: *req.Lon}
	}
	return out
}

// districtAssignRequestFromQuery builds a single request from URL query
// params (§6: "GET/POST ... with query params addr1,addr2,city,state,
// zip5,zip4..."). GET never carries a batch — only POST's JSON body does.
func districtAssignRequestFromQuery(q url.Values) districtAssignRequest {
	req := districtAssignRequest{
		Addr1:        q.Get("addr1"),
		Addr2:        q.Get("addr2"),
		City:         q.Get("city"),
		State:        q.Get("state"),
		Zip5:         q.Get("zip5"),
		Zip4:         q.Get("zip4"),
		USPSValidate: queryBool(q, "uspsValidate"),
		SkipGeocode:  queryBool(q, "skipGeocode"),
		ShowMaps:     queryBool(q, "showMaps"),
		ShowMembers:  queryBool(q, "showMembers"),
		Provider:     q.Get("provider"),
		GeoProvider:  q.Get("geoProvider"),
	}
	if lat, err := strconv.ParseFloat(q.Get("lat"), 64); err == nil {
		req.Lat = &lat
	}
	if lon, err := strconv.ParseFloat(q.Get("lon"), 64); err == nil {
		req.Lon = &lon
	}
	return req
}

func queryBool(q url.Values, key string) bool {
	b, _ := strconv.ParseBool(q.Get(key))
	return b
}

// decodeDistrictAssignBody accepts either a single JSON object or a JSON
// array of objects — the batch form spec.md §6 describes on the same
// endpoints as the single-address form.
func decodeDistrictAssignBody(body io.Reader) ([]districtAssignRequest, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []districtAssignRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}

	var req districtAssignRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []districtAssignRequest{req}, nil
}

func (s *Server) handleDistrictAssign(w http.ResponseWriter, r *http.Request) {
	s.resolveAndRespond(w, r, "")
}

func (s *Server) handleDistrictBluebird(w http.ResponseWriter, r *http.Request) {
	s.resolveAndRespond(w, r, "bluebird")
}

func (s *Server) resolveAndRespond(w http.ResponseWriter, r *http.Request, strategy string) {
	if s.Pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "district resolution is not configured")
		return
	}

	var reqs []districtAssignRequest
	switch r.Method {
	case http.MethodGet:
		reqs = []districtAssignRequest{districtAssignRequestFromQuery(r.URL.Query())}
	case http.MethodPost:
		parsed, err := decodeDistrictAssignBody(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		reqs = parsed
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "no address or point supplied")
		return
	}

	if len(reqs) == 1 {
		result := s.resolveOne(r.Context(), reqs[0], strategy)
		districtsAssigned.WithLabelValues(string(result.MatchLevel), string(result.StatusCode)).Inc()
		writeJSON(w, httpStatusFor(result.StatusCode), result)
		return
	}

	results := make([]*model.DistrictResult, len(reqs))
	for i, body := range reqs {
		results[i] = s.resolveOne(r.Context(), body, strategy)
		districtsAssigned.WithLabelValues(string(results[i].MatchLevel), string(results[i].StatusCode)).Inc()
	}
	writeJSON(w, http.StatusOK, results)
}

// resolveOne runs the pipeline for a single request body, folding a pipeline
// error into a result's status code rather than aborting — a batch call
// must not let one bad row fail the rest of the submitted addresses.
func (s *Server) resolveOne(ctx context.Context, body districtAssignRequest, strategy string) *model.DistrictResult {
	req := body.toModel()
	if strategy != "" {
		req.DistrictStrategy = strategy
	}

	result, err := s.Pipeline.Resolve(ctx, req)
	if err != nil {
		return &model.DistrictResult{StatusCode: model.StatusInternalError, Message: err.Error()}
	}
	return result
}

// httpStatusFor maps a pipeline status code onto the HTTP status the API
// response is served with (§7): input errors are 400s, unresolved lookups
// are 404s, everything else is 200 (including partial/multi-match success).
func httpStatusFor(code model.StatusCode) int {
	switch code {
	case model.StatusSuccess, model.StatusPartialDistrictResult, model.StatusMultipleDistrictResult:
		return http.StatusOK
	case model.StatusMissingAddress, model.StatusMissingGeocode, model.StatusMissingPoint,
		model.StatusMissingInputParams, model.StatusInsufficientAddress, model.StatusInvalidAddress,
		model.StatusInvalidGeocode, model.StatusNonNYState, model.StatusServiceNotSupported,
		model.StatusProviderNotSupported:
		return http.StatusBadRequest
	case model.StatusNoGeocodeResult, model.StatusNoReverseGeocodeResult,
		model.StatusNoAddressValidateResult, model.StatusNoDistrictResult:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
