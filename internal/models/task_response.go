package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task tracker states shared with the deadline-reminder subsystem.
const (
	TaskStatusOpen    = "open"
	TaskStatusSelesai = "selesai"
)

// TaskResponse is a row in the shared task-tracking table. The payment engine
// only ever marks rows selesai when a termin step is paid; the deadline
// scheduler owns everything else about them.
type TaskResponse struct {
	Base       `bson:",inline"`
	KontrakID  primitive.ObjectID `bson:"kontrak_id" json:"kontrak_id"`
	Tahap      string             `bson:"tahap" json:"tahap"`
	Status     string             `bson:"status" json:"status"`
	ResponseAt *time.Time         `bson:"response_time,omitempty" json:"response_time,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
