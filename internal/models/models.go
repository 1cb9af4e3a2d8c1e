package models

import (
	"time"
)

// Credential is the single bearer-token slot used to authenticate every
// backend call. There is at most one row per key.
type Credential struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

// StepTransition is one entry in the onboarding audit trail.
type StepTransition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FromStep  string    `gorm:"type:varchar(50)" json:"from_step"`
	ToStep    string    `gorm:"type:varchar(50)" json:"to_step"`
	Cause     string    `gorm:"type:varchar(255)" json:"cause"`
	Detail    string    `gorm:"type:text" json:"detail"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (StepTransition) TableName() string {
	return "step_transitions"
}

// CallbackRecord remembers an already-consumed code/state pair so a refresh
// or agent restart cannot resubmit the same authorization code.
type CallbackRecord struct {
	Code       string    `gorm:"primaryKey" json:"code"`
	State      string    `gorm:"type:varchar(255)" json:"state"`
	ConsumedAt time.Time `gorm:"autoCreateTime" json:"consumed_at"`
}

func (CallbackRecord) TableName() string {
	return "callback_records"
}
