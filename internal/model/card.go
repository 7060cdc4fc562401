package model

import (
	"time"
)

type CardType string

const (
	CardTypeCredit CardType = "CREDIT"
	CardTypeDebit  CardType = "DEBIT"
)

func (t CardType) Valid() bool {
	return t == CardTypeCredit || t == CardTypeDebit
}

type CardStatus string

const (
	CardStatusCreated  CardStatus = "CREATED"
	CardStatusEnrolled CardStatus = "ENROLLED"
	CardStatusInactive CardStatus = "INACTIVE"
)

type CardOperation string

const (
	CardOperationEnroll     CardOperation = "ENROLL"
	CardOperationDeactivate CardOperation = "DEACTIVATE"
)

// CardTransitions is the single source of card lifecycle rules:
// state x operation -> next state. Missing entries are rejected.
// No operation leads back to CREATED and INACTIVE is terminal.
var CardTransitions = map[CardStatus]map[CardOperation]CardStatus{
	CardStatusCreated: {
		CardOperationEnroll:     CardStatusEnrolled,
		CardOperationDeactivate: CardStatusInactive,
	},
	CardStatusEnrolled: {
		CardOperationDeactivate: CardStatusInactive,
	},
}

// NextCardStatus returns the state reached by applying op to current.
func NextCardStatus(current CardStatus, op CardOperation) (CardStatus, bool) {
	next, ok := CardTransitions[current][op]
	return next, ok
}

// Card is an issued payment card.
//
// Pan and ValidationNumber never leave the service: they are excluded from
// JSON and only exposed through masked or derived projections.
type Card struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Identifier       string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"identifier"`
	Pan              string     `gorm:"type:varchar(16);uniqueIndex;not null" json:"-"`
	HolderName       string     `gorm:"type:varchar(100);not null" json:"holder_name"`
	DocumentNumber   string     `gorm:"type:varchar(20);not null;<-:create" json:"document_number"`
	CardType         CardType   `gorm:"type:varchar(10);not null" json:"card_type"`
	PhoneNumber      string     `gorm:"type:varchar(20)" json:"phone_number"`
	Status           CardStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	ValidationNumber string     `gorm:"type:varchar(18)" json:"-"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index;<-:create" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Card) TableName() string {
	return "card"
}
