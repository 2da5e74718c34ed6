package domain

import "time"

// BlogPost is an article shown on the public blog.
type BlogPost struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Summary       *string   `json:"summary,omitempty"`
	Content       string    `json:"content"`
	Author        *string   `json:"author,omitempty"`
	CoverImageURL *string   `json:"cover_image_url,omitempty"`
	CoverImageKey string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuditAction names an admin mutation recorded in the audit log.
type AuditAction string

const (
	AuditListingCreate   AuditAction = "listing_create"
	AuditListingUpdate   AuditAction = "listing_update"
	AuditListingApprove  AuditAction = "listing_approve"
	AuditListingReject   AuditAction = "listing_reject"
	AuditListingDelete   AuditAction = "listing_delete"
	AuditListingFeatured AuditAction = "listing_featured"
	AuditListingRepair   AuditAction = "listing_repair"
	AuditImageDelete     AuditAction = "image_delete"
	AuditImagePrimary    AuditAction = "image_primary"
	AuditFinancingStatus AuditAction = "financing_status"
	AuditFinancingDelete AuditAction = "financing_delete"
	AuditPostCreate      AuditAction = "post_create"
	AuditPostUpdate      AuditAction = "post_update"
	AuditPostDelete      AuditAction = "post_delete"
)

// AuditEntry is one recorded admin action.
type AuditEntry struct {
	ID        string         `json:"id"`
	Action    AuditAction    `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	SessionID string         `json:"session_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	Action   AuditAction
	Entity   string
	EntityID string
	Limit    int
	Offset   int
}
