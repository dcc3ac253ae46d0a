// Package notify delivers booking confirmations and call-to-room messages to
// a patient's registered device channel.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-engine/internal/slot"
)

type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindCall         Kind = "call"
)

// Channel is the patient's currently active delivery endpoint, usually a
// push token of the mobile app.
type Channel struct {
	Platform     string    `json:"platform"`
	Token        string    `json:"token"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Confirmation describes a freshly booked appointment.
type Confirmation struct {
	AppointmentID  uuid.UUID
	PatientName    string
	HospitalName   string
	DepartmentName string
	DoctorName     string
	RoomNumber     string
	Date           time.Time
	Time           slot.TimeOfDay
}

// Message is what a Sender puts on the wire.
type Message struct {
	Kind      Kind              `json:"kind"`
	PatientID uuid.UUID         `json:"patient_id"`
	Platform  string            `json:"platform"`
	Token     string            `json:"token"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
}

func confirmationMessage(patientID uuid.UUID, ch *Channel, c Confirmation) Message {
	return Message{
		Kind:      KindConfirmation,
		PatientID: patientID,
		Platform:  ch.Platform,
		Token:     ch.Token,
		Title:     "Appointment booked",
		Body: fmt.Sprintf("%s %s on %s at %s",
			c.HospitalName, c.DepartmentName, c.Date.Format(slot.DateLayout), c.Time),
		Data: map[string]string{
			"appointment_id": c.AppointmentID.String(),
			"doctor":         c.DoctorName,
			"room":           c.RoomNumber,
		},
	}
}

func callMessage(patientID uuid.UUID, ch *Channel, room string) Message {
	body := "Please proceed to the consultation room"
	if room != "" {
		body = fmt.Sprintf("Please proceed to room %s", room)
	}
	return Message{
		Kind:      KindCall,
		PatientID: patientID,
		Platform:  ch.Platform,
		Token:     ch.Token,
		Title:     "It's your turn",
		Body:      body,
		Data:      map[string]string{"room": room},
	}
}
