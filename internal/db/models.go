package db

import "time"

// EventRecord maps events. (source_name, source_event_id) is the identity.
type EventRecord struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SourceName    string    `gorm:"column:source_name;type:text;not null;uniqueIndex:ux_events_source_event,priority:1" json:"source_name"`
	SourceEventID string    `gorm:"column:source_event_id;type:text;not null;uniqueIndex:ux_events_source_event,priority:2" json:"source_event_id"`
	Title         string    `gorm:"column:title;type:text;not null" json:"title"`
	Slug          string    `gorm:"column:slug;type:text;not null;index:idx_events_slug" json:"slug"`
	Description   string    `gorm:"column:description;type:text;not null;default:''" json:"description"`
	VenueName     string    `gorm:"column:venue_name;type:text;not null;default:''" json:"venue_name"`
	Country       string    `gorm:"column:country;type:char(2);not null" json:"country"`
	City          *string   `gorm:"column:city;type:text" json:"city,omitempty"`
	StartDate     string    `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate       string    `gorm:"column:end_date;type:date;not null" json:"end_date"`
	StartTime     string    `gorm:"column:start_time;type:text;not null;default:''" json:"start_time"`
	EndTime       string    `gorm:"column:end_time;type:text;not null;default:''" json:"end_time"`
	Timezone      string    `gorm:"column:timezone;type:text;not null" json:"timezone"`
	PriceAmount   *float64  `gorm:"column:price_amount;type:numeric(12,2)" json:"price_amount,omitempty"`
	PriceCurrency string    `gorm:"column:price_currency;type:text;not null;default:''" json:"price_currency"`
	ImageURL      string    `gorm:"column:image_url;type:text;not null;default:''" json:"image_url"`
	BookingURL    string    `gorm:"column:booking_url;type:text;not null;default:''" json:"booking_url"`
	AffiliateURL  string    `gorm:"column:affiliate_url;type:text;not null;default:''" json:"affiliate_url"`
	Category      string    `gorm:"column:category;type:text;not null" json:"category"`
	Language      string    `gorm:"column:language;type:text;not null;default:''" json:"language"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	IsFeatured    bool      `gorm:"column:is_featured;not null;default:false" json:"is_featured"`
	CreatedAt     time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()" json:"updated_at"`
}

func (EventRecord) TableName() string { return "events" }

// SyncRun maps sync_runs, one row per pipeline execution.
type SyncRun struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	RunUUID      string     `gorm:"column:run_uuid;type:uuid;not null;unique" json:"run_id"`
	SourceName   string     `gorm:"column:source_name;type:text;not null;index" json:"source_name"`
	StartedAt    time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()" json:"started_at"`
	FinishedAt   *time.Time `gorm:"column:finished_at;type:timestamptz" json:"finished_at,omitempty"`
	Status       string     `gorm:"column:status;type:text;not null;default:running" json:"status"`
	Fetched      int        `gorm:"column:fetched;type:integer;not null;default:0" json:"fetched"`
	Inserted     int        `gorm:"column:inserted;type:integer;not null;default:0" json:"inserted"`
	Updated      int        `gorm:"column:updated;type:integer;not null;default:0" json:"updated"`
	ErrorCount   int        `gorm:"column:error_count;type:integer;not null;default:0" json:"error_count"`
	Cleaned      int64      `gorm:"column:cleaned;type:bigint;not null;default:0" json:"cleaned"`
	ErrorMessage *string    `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
}

func (SyncRun) TableName() string { return "sync_runs" }

// ContentBrief maps content_briefs, the tracking table of the content step.
type ContentBrief struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	EventID    int64     `gorm:"column:event_id;type:bigint;not null;uniqueIndex" json:"event_id"`
	City       string    `gorm:"column:city;type:text;not null" json:"city"`
	Country    string    `gorm:"column:country;type:text;not null" json:"country"`
	SourceText string    `gorm:"column:source_text;type:text;not null" json:"source_text"`
	Status     string    `gorm:"column:status;type:text;not null;default:pending" json:"status"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

func (ContentBrief) TableName() string { return "content_briefs" }

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"

	BriefStatusPending = "pending"
)
