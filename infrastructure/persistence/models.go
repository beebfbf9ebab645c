package persistence

import "time"

// RepositoryModel is the GORM model for repositories.
type RepositoryModel struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Owner     string     `gorm:"column:owner;uniqueIndex:idx_repositories_owner_name"`
	Name      string     `gorm:"column:name;uniqueIndex:idx_repositories_owner_name"`
	RemoteURL string     `gorm:"column:remote_url"`
	ClonePath string     `gorm:"column:clone_path"`
	HeadSHA   string     `gorm:"column:head_sha"`
	Language  string     `gorm:"column:language"`
	SizeBytes int64      `gorm:"column:size_bytes"`
	Status    string     `gorm:"column:status;index"`
	RiskScore *int       `gorm:"column:risk_score"`
	LastError string     `gorm:"column:last_error"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for RepositoryModel.
func (RepositoryModel) TableName() string { return "repositories" }

// FileModel is the GORM model for stored source files. The
// (repository_id, path) pair is the upsert key.
type FileModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryID int64     `gorm:"column:repository_id;uniqueIndex:idx_source_files_repo_path"`
	Path         string    `gorm:"column:path;uniqueIndex:idx_source_files_repo_path"`
	Content      string    `gorm:"column:content"`
	Language     string    `gorm:"column:language"`
	LineCount    int       `gorm:"column:line_count"`
	SizeBytes    int64     `gorm:"column:size_bytes"`
	Imports      []byte    `gorm:"column:imports;type:json"`
	ModifiedAt   time.Time `gorm:"column:modified_at"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name for FileModel.
func (FileModel) TableName() string { return "source_files" }

// EntityModel is the GORM model for extracted code entities.
type EntityModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryID int64     `gorm:"column:repository_id;index"`
	FileID       int64     `gorm:"column:file_id;index"`
	FilePath     string    `gorm:"column:file_path"`
	Kind         string    `gorm:"column:kind"`
	Name         string    `gorm:"column:name"`
	Signature    string    `gorm:"column:signature"`
	StartLine    int       `gorm:"column:start_line"`
	EndLine      int       `gorm:"column:end_line"`
	Complexity   int       `gorm:"column:complexity"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for EntityModel.
func (EntityModel) TableName() string { return "code_entities" }

// FindingModel is the GORM model for security findings.
type FindingModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryID int64     `gorm:"column:repository_id;index"`
	FileID       int64     `gorm:"column:file_id;index"`
	FilePath     string    `gorm:"column:file_path"`
	RuleID       string    `gorm:"column:rule_id"`
	Severity     string    `gorm:"column:severity;index"`
	Category     string    `gorm:"column:category"`
	LineNumber   int       `gorm:"column:line_number"`
	Description  string    `gorm:"column:description"`
	Evidence     string    `gorm:"column:evidence"`
	Confidence   float64   `gorm:"column:confidence"`
	Status       string    `gorm:"column:status"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for FindingModel.
func (FindingModel) TableName() string { return "security_findings" }

// BusFactorModel is the GORM model for bus-factor snapshots. Rows are
// append-only; the ownership breakdowns are stored as JSON.
type BusFactorModel struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RepositoryID   int64     `gorm:"column:repository_id;index"`
	BusFactor      float64   `gorm:"column:bus_factor"`
	RiskLevel      string    `gorm:"column:risk_level"`
	TotalCommits   int       `gorm:"column:total_commits"`
	UniqueAuthors  int       `gorm:"column:unique_authors"`
	SingleOwnerPct int       `gorm:"column:single_owner_pct"`
	FileOwnership  []byte    `gorm:"column:file_ownership;type:json"`
	AuthorStats    []byte    `gorm:"column:author_stats;type:json"`
	CriticalFiles  []byte    `gorm:"column:critical_files;type:json"`
	KnowledgeSilos []byte    `gorm:"column:knowledge_silos;type:json"`
	ErrorMessage   string    `gorm:"column:error_message"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for BusFactorModel.
func (BusFactorModel) TableName() string { return "bus_factor_metrics" }

// TaskModel is the GORM model for queued tasks. A row's existence means
// the task is pending or claimed; finished tasks are deleted.
type TaskModel struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey     string     `gorm:"column:dedup_key;uniqueIndex:idx_tasks_dedup_key"`
	RepositoryID int64      `gorm:"column:repository_id;index"`
	Operation    string     `gorm:"column:operation"`
	Priority     int        `gorm:"column:priority;index"`
	Attempt      int        `gorm:"column:attempt"`
	Payload      []byte     `gorm:"column:payload;type:json"`
	ClaimedAt    *time.Time `gorm:"column:claimed_at;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for TaskModel.
func (TaskModel) TableName() string { return "tasks" }
