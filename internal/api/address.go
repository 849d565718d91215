package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/nysenate/geodistrict/internal/model"
)

type addressBody struct {
	Addr1 string `json:"addr1"`
	Addr2 string `json:"addr2"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip5  string `json:"zip5"`
	Zip4  string `json:"zip4"`
}

func (b addressBody) toModel() model.Address {
	return model.Address{Addr1: b.Addr1, Addr2: b.Addr2, City: b.City, State: b.State, Zip5: b.Zip5, Zip4: b.Zip4}
}

func addressBodyFromQuery(q url.Values) addressBody {
	return addressBody{
		Addr1: q.Get("addr1"), Addr2: q.Get("addr2"), City: q.Get("city"),
		State: q.Get("state"), Zip5: q.Get("zip5"), Zip4: q.Get("zip4"),
	}
}

// decodeAddressRequest reads addr from the query string on GET, or the JSON
// body on POST (§6: "GET/POST ... with query params addr1,addr2,...").
func decodeAddressRequest(r *http.Request) (addressBody, error) {
	if r.Method == http.MethodGet {
		return addressBodyFromQuery(r.URL.Query()), nil
	}
	var body addressBody
	err := json.NewDecoder(r.Body).Decode(&body)
	return body, err
}

func fromAddress(a model.Address) addressBody {
	return addressBody{Addr1: a.Addr1, Addr2: a.Addr2, City: a.City, State: a.State, Zip5: a.Zip5, Zip4: a.Zip4}
}

type addressValidateResponse struct {
	Validated bool        `json:"validated"`
	Address   addressBody `json:"address"`
	Messages  []string    `json:"messages,omitempty"`
}

// handleAddressValidate runs the USPS standardization adapter directly,
// independent of district resolution (§6's validate(Address) contract).
func (s *Server) handleAddressValidate(w http.ResponseWriter, r *http.Request) {
	if s.Validator == nil {
		writeError(w, http.StatusServiceUnavailable, "address validation is not configured")
		return
	}

	body, err := decodeAddressRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	addr := body.toModel()
	if addr.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, addressValidateResponse{Messages: []string{"no address supplied"}})
		return
	}

	validated, ok, err := s.Validator.Validate(r.Context(), addr)
	if err != nil {
		writeJSON(w, http.StatusOK, addressValidateResponse{
			Validated: false,
			Address:   body,
			Messages:  []string{err.Error()},
		})
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, addressValidateResponse{Validated: false, Address: body})
		return
	}

	writeJSON(w, http.StatusOK, addressValidateResponse{Validated: true, Address: fromAddress(validated)})
}

type cityStateRequest struct {
	City  string `json:"city"`
	State string `json:"state"`
	Zip5  string `json:"zip5"`
}

type cityStateResult struct {
	City  string `json:"city"`
	State string `json:"state"`
}

func cityStateRequestFrom(r *http.Request) (cityStateRequest, error) {
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		return cityStateRequest{City: q.Get("city"), State: q.Get("state"), Zip5: q.Get("zip5")}, nil
	}
	var req cityStateRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

// handleAddressCityState expands a city/state pair into the zip5 values on
// file for it (§6's lookupCityState(Address) contract).
func (s *Server) handleAddressCityState(w http.ResponseWriter, r *http.Request) {
	if s.Streetfile == nil {
		writeError(w, http.StatusServiceUnavailable, "street-file lookups are not configured")
		return
	}

	req, err := cityStateRequestFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.City == "" || req.State == "" {
		writeError(w, http.StatusBadRequest, "city and state are required")
		return
	}

	zips, err := s.Streetfile.CityZipLookup(r.Context(), req.City, req.State)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"zip5": zips})
}

// handleAddressZipcode resolves a zip5 to the city/state pairs on file for
// it (§6's lookupZipcode(Address) contract) — the reverse of CityState.
func (s *Server) handleAddressZipcode(w http.ResponseWriter, r *http.Request) {
	if s.Streetfile == nil {
		writeError(w, http.StatusServiceUnavailable, "street-file lookups are not configured")
		return
	}

	req, err := cityStateRequestFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Zip5 == "" {
		writeError(w, http.StatusBadRequest, "zip5 is required")
		return
	}

	pairs, err := s.Streetfile.ZipToCityState(r.Context(), req.Zip5)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]cityStateResult, len(pairs))
	for i, p := range pairs {
		results[i] = cityStateResult{City: p.City, State: p.State}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cityStates": results})
}
