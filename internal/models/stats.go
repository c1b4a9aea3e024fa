package models

import "time"

// AdminStats are the system-wide aggregates shown on the admin panel.
type AdminStats struct {
	ActiveUsers   int `json:"activeUsers"`
	TotalProjects int `json:"totalProjects"`
	TotalTasks    int `json:"totalTasks"`
	TotalGroups   int `json:"totalGroups"`
	ActiveGroups  int `json:"activeGroups"`
	ServiceGroups int `json:"serviceGroups"`
	CourseGroups  int `json:"courseGroups"`
}

// TeacherStats are the aggregates for one maestro.
type TeacherStats struct {
	CreatedProjects int `json:"createdProjects"`
	AssignedTasks   int `json:"assignedTasks"`
	Students        int `json:"students"`
	MyGroups        int `json:"myGroups"`
	ActiveGroups    int `json:"activeGroups"`
}

// SystemMetrics is a lightweight snapshot of runtime metrics for the
// admin surface, complementing the Prometheus endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// StudentStats are the aggregates for one estudiante.
type StudentStats struct {
	ActiveProjects int `json:"activeProjects"`
	PendingTasks   int `json:"pendingTasks"`
	CompletedTasks int `json:"completedTasks"`
	MyGroups       int `json:"myGroups"`
	ServiceGroups  int `json:"serviceGroups"`
}
