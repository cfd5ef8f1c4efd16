package domain

import "time"

// CampaignView is the immutable result of one load cycle and the only
// object handed to presentation. A refresh replaces it wholesale.
type CampaignView struct {
	cycleID     string
	phase       CampaignPhase
	flags       PhaseFlags
	viewer      Identity
	admin       Identity
	viewerAdmin bool
	roster      Roster
	records     map[Identity]ParticipantRecord
	loading     bool
	loadedAt    time.Time
}

// ViewSnapshot carries everything the aggregator collected in a cycle.
type ViewSnapshot struct {
	CycleID  string
	Flags    PhaseFlags
	Viewer   Identity
	Admin    Identity
	Roster   Roster
	Records  map[Identity]ParticipantRecord
	LoadedAt time.Time
}

// NewCampaignView builds a completed view. Inputs are copied; the phase and
// the admin flag are derived here so they cannot disagree with the raw data.
func NewCampaignView(s ViewSnapshot) *CampaignView {
	records := make(map[Identity]ParticipantRecord, len(s.Records))
	for id, rec := range s.Records {
		records[id] = rec
	}
	return &CampaignView{
		cycleID:     s.CycleID,
		phase:       s.Flags.Phase(),
		flags:       s.Flags,
		viewer:      s.Viewer,
		admin:       s.Admin,
		viewerAdmin: s.Viewer.Equal(s.Admin),
		roster:      s.Roster.Clone(),
		records:     records,
		loadedAt:    s.LoadedAt,
	}
}

// LoadingView is shown before the first cycle for a selector completes.
func LoadingView() *CampaignView {
	return &CampaignView{
		records: map[Identity]ParticipantRecord{},
		loading: true,
	}
}

// WithLoading returns a copy flagged as loading; used while a newer cycle runs.
func (v *CampaignView) WithLoading() *CampaignView {
	cp := *v
	cp.loading = true
	return &cp
}

func (v *CampaignView) CycleID() string      { return v.cycleID }
func (v *CampaignView) Phase() CampaignPhase { return v.phase }
func (v *CampaignView) Flags() PhaseFlags    { return v.flags }
func (v *CampaignView) Viewer() Identity     { return v.viewer }
func (v *CampaignView) Admin() Identity      { return v.admin }
func (v *CampaignView) IsViewerAdmin() bool  { return v.viewerAdmin }
func (v *CampaignView) Loading() bool        { return v.loading }
func (v *CampaignView) LoadedAt() time.Time  { return v.loadedAt }
func (v *CampaignView) Roster() Roster       { return v.roster.Clone() }
func (v *CampaignView) RecordCount() int     { return len(v.records) }

// Record returns the record for id, if one was fetched.
func (v *CampaignView) Record(id Identity) (ParticipantRecord, bool) {
	rec, ok := v.records[id]
	return rec, ok
}

// Records returns a copy of the identity → record mapping. It may be partial.
func (v *CampaignView) Records() map[Identity]ParticipantRecord {
	out := make(map[Identity]ParticipantRecord, len(v.records))
	for id, rec := range v.records {
		out[id] = rec
	}
	return out
}

// Rows returns available records in roster order. Roster members without a
// record are skipped rather than rendered empty.
func (v *CampaignView) Rows() []ParticipantRecord {
	rows := make([]ParticipantRecord, 0, len(v.records))
	for _, id := range v.roster {
		if rec, ok := v.records[id]; ok {
			rows = append(rows, rec)
		}
	}
	return rows
}

// Missing lists roster members whose record could not be fetched.
func (v *CampaignView) Missing() []Identity {
	var out []Identity
	for _, id := range v.roster {
		if _, ok := v.records[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
