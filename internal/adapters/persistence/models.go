package persistence

import (
	"time"
)

// SimulationStateModel represents the simulation_states table. One row per
// session holds the clock state of the latest snapshot.
type SimulationStateModel struct {
	SessionID    string    `gorm:"column:session_id;primaryKey;not null"`
	SavedAt      time.Time `gorm:"column:saved_at;not null;index"`
	SimTime      time.Time `gorm:"column:sim_time;not null"`
	Day          int       `gorm:"column:day;not null;default:1"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	IsPaused     bool      `gorm:"column:is_paused;not null;default:false"`
	Speed        float64   `gorm:"column:speed;not null;default:1"`
	NextSequence int64     `gorm:"column:next_sequence;not null;default:0"`
}

func (SimulationStateModel) TableName() string {
	return "simulation_states"
}

// TaskModel represents the tasks table
type TaskModel struct {
	SessionID        string                `gorm:"column:session_id;primaryKey;not null"`
	Session          *SimulationStateModel `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ID               string                `gorm:"column:id;primaryKey;not null"`
	Sequence         int64                 `gorm:"column:sequence;not null"`
	Type             string                `gorm:"column:type;not null"`
	Status           string                `gorm:"column:status;not null"`
	Progress         float64               `gorm:"column:progress;not null;default:0"`
	TotalTime        float64               `gorm:"column:total_time;not null"`
	AssignedTo       string                `gorm:"column:assigned_to"`
	RoleNeeded       string                `gorm:"column:role_needed"`
	Priority         string                `gorm:"column:priority"`
	CustomerID       string                `gorm:"column:customer_id;index"`
	PrescriptionID   string                `gorm:"column:prescription_id"`
	ProductID        string                `gorm:"column:product_id"`
	DependencyTaskID string                `gorm:"column:dependency_task_id"`
	CreatedAt        time.Time             `gorm:"column:created_at;not null"`
	AssignedAt       *time.Time            `gorm:"column:assigned_at"`
	LastProgressTime time.Time             `gorm:"column:last_progress_time"`
}

func (TaskModel) TableName() string {
	return "tasks"
}

// WorkerModel represents the workers table
type WorkerModel struct {
	SessionID     string                `gorm:"column:session_id;primaryKey;not null"`
	Session       *SimulationStateModel `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ID            string                `gorm:"column:id;primaryKey;not null"`
	Name          string                `gorm:"column:name"`
	Role          string                `gorm:"column:role"`
	Skills        string                `gorm:"column:skills;type:text"` // JSON as text
	Morale        float64               `gorm:"column:morale;not null;default:50"`
	CurrentTaskID string                `gorm:"column:current_task_id"`
}

func (WorkerModel) TableName() string {
	return "workers"
}

// SimulationLogModel represents the simulation_logs table
type SimulationLogModel struct {
	ID        int       `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID string    `gorm:"column:session_id;not null;index"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	Level     string    `gorm:"column:level;not null;default:'INFO'"`
	Message   string    `gorm:"column:message;type:text;not null"`
	Metadata  string    `gorm:"column:metadata;type:text"`
}

func (SimulationLogModel) TableName() string {
	return "simulation_logs"
}

// AllModels lists every model for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&SimulationStateModel{},
		&TaskModel{},
		&WorkerModel{},
		&SimulationLogModel{},
	}
}
