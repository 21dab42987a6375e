package models

import "time"

// Campaign state constants
const (
	StateCreated = "created"
	StateEnabled = "enabled"
	StateClosed  = "closed"
)

// Session roles
const (
	RoleAdmin   = "admin"
	RoleElector = "elector"
)

// Broadcast event types
const (
	EventVoteCast         = "vote_cast"
	EventCampaignToggled  = "campaign_toggled"
	EventCampaignClosed   = "campaign_closed"
	EventCampaignReopened = "campaign_reopened"
	EventCampaignUpdated  = "campaign_updated"
)

// Campaign update kinds carried by EventCampaignUpdated
const (
	ChangeCampaignEdited   = "campaign_edited"
	ChangeCandidateAdded   = "candidate_added"
	ChangeCandidateUpdated = "candidate_updated"
	ChangeCandidateRemoved = "candidate_removed"
)

// Request types

type CreateCampaignRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EndTime     time.Time `json:"end_time"`
	Candidates  []string  `json:"candidates"`
}

// UpdateCampaignRequest edits only the fields that are present.
type UpdateCampaignRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
}

type AddCandidateRequest struct {
	Name string `json:"name"`
}

type UpdateCandidateRequest struct {
	Name string `json:"name"`
}

type CreateElectorRequest struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Quota int    `json:"quota"`
}

type SetElectorActiveRequest struct {
	Active bool `json:"active"`
}

type CastVoteRequest struct {
	CampaignID  string `json:"campaign_id"`
	CandidateID string `json:"candidate_id"`
}

// Response types

type CreateCampaignResponse struct {
	Campaign Campaign `json:"campaign"`
}

type AddCandidateResponse struct {
	CandidateID string `json:"candidate_id"`
}

type CreateElectorResponse struct {
	ElectorID string `json:"elector_id"`
}

type SessionTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CampaignTransitionResponse struct {
	Campaign Campaign `json:"campaign"`
	Changed  bool     `json:"changed"`
}

type CastVoteResponse struct {
	Ballot         Ballot `json:"ballot"`
	VotesRemaining int    `json:"votes_remaining"`
}

type RemainingVotesResponse struct {
	Quota     int `json:"quota"`
	Consumed  int `json:"consumed"`
	Remaining int `json:"remaining"`
}

type ListCampaignsResponse struct {
	Campaigns []Campaign `json:"campaigns"`
}

type ListElectorsResponse struct {
	Electors []Elector `json:"electors"`
}

type ElectorUsageResponse struct {
	CampaignID string         `json:"campaign_id"`
	Electors   []ElectorUsage `json:"electors"`
}

type ErrorResponse struct {
	Error    string            `json:"error"`
	Message  string            `json:"message"`
	Code     string            `json:"code,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Domain types

type Campaign struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	State       string      `json:"state"`
	StartTime   *time.Time  `json:"start_time,omitempty"`
	EndTime     time.Time   `json:"end_time"`
	Candidates  []Candidate `json:"candidates,omitempty"`
	TotalVotes  int64       `json:"total_votes"`
	Seq         int64       `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Candidate struct {
	ID         string `json:"id"`
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
	VoteCount  int64  `json:"vote_count"`
}

type Elector struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Quota     int       `json:"quota"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Ballot provenance (IPHash, UserAgent) is stored but never serialized.
type Ballot struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	ElectorID   string    `json:"elector_id"`
	CandidateID string    `json:"candidate_id"`
	CastAt      time.Time `json:"cast_at"`
	IPHash      string    `json:"-"`
	UserAgent   string    `json:"-"`
}

// ElectorUsage is one active elector's quota consumption in a campaign.
type ElectorUsage struct {
	ElectorID string `json:"elector_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Quota     int    `json:"quota"`
	Used      int    `json:"used"`
	Available int    `json:"available"`
}

type LedgerEntry struct {
	CampaignID string `json:"campaign_id"`
	ElectorID  string `json:"elector_id"`
	Consumed   int    `json:"consumed"`
}

// Session is the identity resolved from a request credential.
type Session struct {
	Subject   string
	Role      string
	ElectorID string
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Event types

// Event is one broadcast message for a campaign. Seq is the campaign's
// store sequence at commit; zero means unsequenced.
type Event struct {
	Type       string `json:"type"`
	CampaignID string `json:"-"`
	Seq        int64  `json:"seq,omitempty"`
	Data       any    `json:"data"`
}

type VoteCastData struct {
	CampaignID    string    `json:"campaign_id"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name"`
	ElectorName   string    `json:"elector_name"`
	NewVoteCount  int64     `json:"new_vote_count"`
	NewTotalVotes int64     `json:"new_total_votes"`
	Timestamp     time.Time `json:"timestamp"`
}

type CampaignStateData struct {
	CampaignID string     `json:"campaign_id"`
	State      string     `json:"state"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    time.Time  `json:"end_time"`
	TotalVotes int64      `json:"total_votes"`
	Timestamp  time.Time  `json:"timestamp"`
}

type CampaignUpdatedData struct {
	CampaignID  string    `json:"campaign_id"`
	Change      string    `json:"change"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Campaign    Campaign  `json:"campaign"`
	Timestamp   time.Time `json:"timestamp"`
}

// Websocket frames

type ClientFrame struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaign_id,omitempty"`
}

type ServerFrame struct {
	Type       string `json:"type"`
	CampaignID string `json:"campaign_id,omitempty"`
	Seq        int64  `json:"seq,omitempty"`
	Data       any    `json:"data,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

type ConnectionStats struct {
	TotalConnections int             `json:"total_connections"`
	TotalCampaigns   int             `json:"total_campaigns"`
	Campaigns        []CampaignStats `json:"campaigns"`
}

type CampaignStats struct {
	CampaignID  string `json:"campaign_id"`
	Subscribers int    `json:"subscribers"`
}
