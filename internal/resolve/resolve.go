// Package resolve implements the top-level district resolution pipeline
// (§4.6): address/point input validation, optional USPS correction,
// geocoding, and district assignment via either the standard
// shapefile/street-file consolidation path or the multi-match overlap path.
package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nysenate/geodistrict/internal/addrmodel"
	"github.com/nysenate/geodistrict/internal/model"
	"github.com/nysenate/geodistrict/internal/streetfile"
)

// defaultProximityThresholdMeters is the consolidation boundary-closeness
// cutoff (§4.7). The original spec names it "0.001 units" in whatever CRS
// the source used; this rewrite works in geography meters throughout
// (shapefile.Lookup returns ST_Distance in meters), so the threshold is
// re-expressed as a meters value — see DESIGN.md.
const defaultProximityThresholdMeters = 50.0

// Geocoder is the subset of geopipeline.Pipeline Resolve needs.
type Geocoder interface {
	Geocode(ctx context.Context, addr model.StreetAddress, requestedProvider string) (model.Geocode, error)
}

// ShapefileLookup is the subset of shapefile.Lookup Resolve needs.
type ShapefileLookup interface {
	GetDistrictInfo(ctx context.Context, pt model.LatLon, types []model.DistrictType) (*model.DistrictInfo, error)
	GetNearbyDistricts(ctx context.Context, pt model.LatLon, t model.DistrictType, excludeCode string, thresholdMeters float64) ([]model.DistrictEntry, error)
	GetDistrictMap(ctx context.Context, t model.DistrictType, code string) (*model.DistrictMap, error)
	GetDistrictOverlap(ctx context.Context, referenceType, targetType model.DistrictType, referenceCodes []string) (*model.DistrictOverlap, error)
}

// StreetfileLookup is the subset of streetfile.Lookup Resolve needs.
type StreetfileLookup interface {
	Lookup(ctx context.Context, addr model.StreetAddress) (streetfile.Match, bool, error)
	CandidatesByZips(ctx context.Context, zips []string) (map[model.DistrictType]map[string]bool, error)
	CityZipLookup(ctx context.Context, city, state string) ([]string, error)
}

// AddressValidator is the USPS-style address correction service (§4.6 step
// 2). ok=false means validation failed; callers retry with the raw address.
type AddressValidator interface {
	Validate(ctx context.Context, addr model.Address) (model.Address, bool, error)
}

// WFSLookup is the external Web Feature Service fallback district source
// (§4.6 step 7.5): consulted only for district types consolidation still
// couldn't fill from the shapefile or street-file.
type WFSLookup interface {
	GetDistrictInfo(ctx context.Context, pt model.LatLon, types []model.DistrictType) (*model.DistrictInfo, error)
}

// MemberProvider attaches elected-official metadata to a resolved district
// (§4.6 step 8) — an external collaborator out of this repo's scope; a nil
// MemberProvider simply skips the attachment.
type MemberProvider interface {
	Members(ctx context.Context, t model.DistrictType, code string) (model.MemberInfo, bool)
}

// Pipeline is the top-level district resolution orchestrator.
type Pipeline struct {
	Geocoder   Geocoder
	Shapefile  ShapefileLookup
	Streetfile StreetfileLookup
	WFS        WFSLookup        // optional
	USPS       AddressValidator // optional
	Members    MemberProvider   // optional

	ProximityThresholdMeters float64
}

// New builds a Pipeline wiring its collaborators; threshold <= 0 uses the
// default (50m). WFS is wired separately via the WFS field — most
// deployments never need the external fallback, so it isn't a constructor
// argument.
func New(geocoder Geocoder, shp ShapefileLookup, sf StreetfileLookup, usps AddressValidator, members MemberProvider, thresholdMeters float64) *Pipeline {
	if thresholdMeters <= 0 {
		thresholdMeters = defaultProximityThresholdMeters
	}
	return &Pipeline{
		Geocoder:                 geocoder,
		Shapefile:                shp,
		Streetfile:               sf,
		USPS:                     usps,
		Members:                  members,
		ProximityThresholdMeters: thresholdMeters,
	}
}

// Resolve runs the full pipeline for one request.
func (p *Pipeline) Resolve(ctx context.Context, req model.DistrictRequest) (*model.DistrictResult, error) {
	if req.Point != nil {
		return p.resolvePoint(ctx, req)
	}
	return p.resolveAddress(ctx, req)
}

func (p *Pipeline) resolveAddress(ctx context.Context, req model.DistrictRequest) (*model.DistrictResult, error) {
	if req.Address.IsEmpty() {
		return failResult(model.StatusMissingAddress, "no address supplied"), nil
	}
	if req.Address.State != "" && req.Address.State != "NY" {
		return failResult(model.StatusNonNYState, "address is not in New York State"), nil
	}

	streetAddr := addrmodel.Parse(req.Address)
	isPOBox := streetAddr.IsPOBox()
	uspsValidated := false

	if req.USPSValidate && p.USPS != nil {
		validated, ok, err := p.USPS.Validate(ctx, req.Address)
		if err != nil {
			zap.L().Warn("resolve: usps validation failed, retrying with raw address", zap.Error(err))
		}
		if ok {
			req.Address = validated
			streetAddr = addrmodel.Parse(req.Address)
			isPOBox = streetAddr.IsPOBox()
			uspsValidated = true
		}
	}

	var gc model.Geocode
	if !req.SkipGeocode {
		result, err := p.Geocoder.Geocode(ctx, streetAddr, req.GeoProvider)
		if err != nil {
			zap.L().Warn("resolve: geocode failed", zap.Error(err))
		} else {
			gc = result
		}
	}

	ga := model.GeocodedAddress{Address: req.Address, Street: streetAddr, Geocode: gc}

	var info *model.DistrictInfo
	var matchLevel model.MatchLevel
	var err error
	switch {
	case req.DistrictStrategy == "bluebird":
		// bluebird always surfaces overlap candidates instead of committing
		// to one consolidated result, even for a house-precision geocode.
		info, matchLevel, err = p.multiMatchAssign(ctx, streetAddr, gc.Quality)
	case gc.Quality >= model.QualityHouse || isPOBox:
		info, matchLevel, err = p.standardAssign(ctx, gc, streetAddr, isPOBox)
	default:
		info, matchLevel, err = p.multiMatchAssign(ctx, streetAddr, gc.Quality)
	}
	if err != nil {
		return nil, err
	}

	if isPOBox && !uspsValidated {
		ga.Address.Addr1 = fmt.Sprintf("PO Box %d", streetAddr.POBox)
	}

	if req.ShowMaps {
		p.attachMaps(ctx, info)
	}

	result := &model.DistrictResult{
		GeocodedAddress: ga,
		DistrictInfo:    info,
		MatchLevel:      matchLevel,
		Timestamp:       timeNow(),
	}
	result.StatusCode = statusFor(info, req, matchLevel)

	if req.ShowMembers && p.Members != nil {
		result.Members = p.attachMembers(ctx, info)
	}

	return result, nil
}

func (p *Pipeline) resolvePoint(ctx context.Context, req model.DistrictRequest) (*model.DistrictResult, error) {
	gc := model.Geocode{Lat: req.Point.Lat, Lon: req.Point.Lon, Quality: model.QualityPoint, Method: "input"}

	info, matchLevel, err := p.standardAssign(ctx, gc, model.StreetAddress{}, false)
	if err != nil {
		return nil, err
	}

	if req.ShowMaps {
		p.attachMaps(ctx, info)
	}

	result := &model.DistrictResult{
		GeocodedAddress: model.GeocodedAddress{Geocode: gc},
		DistrictInfo:    info,
		MatchLevel:      matchLevel,
		Timestamp:       timeNow(),
	}
	result.StatusCode = statusFor(info, req, matchLevel)

	if req.ShowMembers && p.Members != nil {
		result.Members = p.attachMembers(ctx, info)
	}

	return result, nil
}

// standardAssign runs the shapefile lookup and the street-file exact lookup
// in parallel, then consolidates (§4.7). Both lookups always run; the
// request's Provider field is not consulted here or by the callers.
func (p *Pipeline) standardAssign(ctx context.Context, gc model.Geocode, streetAddr model.StreetAddress, isPOBox bool) (*model.DistrictInfo, model.MatchLevel, error) {
	if !gc.Valid() {
		return model.NewDistrictInfo(), model.MatchNone, nil
	}

	pt := model.LatLon{Lat: gc.Lat, Lon: gc.Lon}

	shapefileInfo, streetfileDistricts, err := p.fanOutLookups(ctx, pt, streetAddr)
	if err != nil {
		return nil, model.MatchNone, err
	}

	consolidated, err := Consolidate(ctx, shapefileInfo, streetfileDistricts, p.ProximityThresholdMeters, p.nearbyFunc(pt))
	if err != nil {
		return nil, model.MatchNone, err
	}

	p.fillWFSGaps(ctx, pt, consolidated)

	level := model.MatchHouse
	if isPOBox && gc.Quality < model.QualityHouse {
		level = model.MatchZip5
	}
	return consolidated, level, nil
}

func (p *Pipeline) multiMatchAssign(ctx context.Context, streetAddr model.StreetAddress, quality model.Quality) (*model.DistrictInfo, model.MatchLevel, error) {
	mm := &MultiMatch{
		Candidates: p.Streetfile.CandidatesByZips,
		CityZip:    p.Streetfile.CityZipLookup,
		Overlap:    p.overlapFunc(),
	}
	return mm.Resolve(ctx, streetAddr, quality)
}

func (p *Pipeline) fanOutLookups(ctx context.Context, pt model.LatLon, streetAddr model.StreetAddress) (*model.DistrictInfo, map[model.DistrictType]model.DistrictEntry, error) {
	var shapefileInfo *model.DistrictInfo
	var streetfileDistricts map[model.DistrictType]model.DistrictEntry

	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		info, err := p.Shapefile.GetDistrictInfo(gCtx, pt, model.AllDistrictTypes)
		if err != nil {
			return err
		}
		shapefileInfo = info
		return nil
	})
	eg.Go(func() error {
		if !streetAddr.HasStreet() {
			return nil
		}
		match, ok, err := p.Streetfile.Lookup(gCtx, streetAddr)
		if err != nil {
			zap.L().Warn("resolve: streetfile lookup failed", zap.Error(err))
			return nil //nolint:nilerr // street-file is a secondary source; shapefile alone still resolves
		}
		if ok {
			streetfileDistricts = match.Districts
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return shapefileInfo, streetfileDistricts, nil
}

// fillWFSGaps consults the external WFS fallback for every district type
// (model.AllDistrictTypes) consolidation left unassigned, and marks whatever it fills
// uncertain — the WFS source is not reconciled against shapefile/street-file
// agreement the way those two are against each other. A nil p.WFS is a
// silent no-op: the fallback is optional.
func (p *Pipeline) fillWFSGaps(ctx context.Context, pt model.LatLon, info *model.DistrictInfo) {
	if p.WFS == nil {
		return
	}

	var missing []model.DistrictType
	for _, t := range model.AllDistrictTypes {
		if e, ok := info.Entries[t]; !ok || e.Code == "" {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return
	}

	wfsInfo, err := p.WFS.GetDistrictInfo(ctx, pt, missing)
	if err != nil {
		zap.L().Warn("resolve: wfs fallback lookup failed", zap.Error(err))
		return
	}
	for t, e := range wfsInfo.Entries {
		info.Entries[t] = e
		info.Uncertain[t] = true
	}
}

func (p *Pipeline) overlapFunc() OverlapFunc {
	return func(ctx context.Context, targetType model.DistrictType, referenceZips []string) (*model.DistrictOverlap, error) {
		return p.Shapefile.GetDistrictOverlap(ctx, model.Zip, targetType, referenceZips)
	}
}

func (p *Pipeline) nearbyFunc(pt model.LatLon) NearbyFunc {
	return func(ctx context.Context, t model.DistrictType, excludeCode string) ([]model.DistrictEntry, error) {
		return p.Shapefile.GetNearbyDistricts(ctx, pt, t, excludeCode, p.ProximityThresholdMeters)
	}
}

func (p *Pipeline) attachMaps(ctx context.Context, info *model.DistrictInfo) {
	for t, entry := range info.Entries {
		if entry.Code == "" || entry.Map != nil {
			continue
		}
		dm, err := p.Shapefile.GetDistrictMap(ctx, t, entry.Code)
		if err != nil {
			zap.L().Warn("resolve: map lookup failed", zap.String("district_type", string(t)), zap.Error(err))
			continue
		}
		entry.Map = dm
		info.Entries[t] = entry
	}
}

func (p *Pipeline) attachMembers(ctx context.Context, info *model.DistrictInfo) map[model.DistrictType]model.MemberInfo {
	members := make(map[model.DistrictType]model.MemberInfo)
	for t, entry := range info.Entries {
		if entry.Code == "" {
			continue
		}
		if m, ok := p.Members.Members(ctx, t, entry.Code); ok {
			members[t] = m
		}
	}
	return members
}

func statusFor(info *model.DistrictInfo, req model.DistrictRequest, level model.MatchLevel) model.StatusCode {
	requested := req.Types
	if len(requested) == 0 {
		requested = model.AllDistrictTypes
	}

	assigned := 0
	for _, t := range requested {
		if e, ok := info.Entries[t]; ok && e.Code != "" {
			assigned++
		}
	}

	switch {
	case assigned == 0:
		return model.StatusNoDistrictResult
	case req.ShowMultiMatch && level != model.MatchHouse && hasOverlap(info):
		return model.StatusMultipleDistrictResult
	case assigned < len(requested):
		return model.StatusPartialDistrictResult
	default:
		return model.StatusSuccess
	}
}

func hasOverlap(info *model.DistrictInfo) bool {
	for _, e := range info.Entries {
		if e.Overlap != nil {
			return true
		}
	}
	return false
}

func failResult(status model.StatusCode, msg string) *model.DistrictResult {
	return &model.DistrictResult{
		DistrictInfo: model.NewDistrictInfo(),
		MatchLevel:   model.MatchNone,
		StatusCode:   status,
		Message:      msg,
		Timestamp:    timeNow(),
	}
}

func timeNow() time.Time {
	return time.Now().UTC()
}
