package event

import "time"

const OTPDispatchDestination string = "otp.dispatch"
const OTPDispatchConsumerNotification string = "otp_dispatch_notification"

type OTPDispatchMessage struct {
	ID          string    `json:"id"`
	Phone       string    `json:"phone"`
	Code        string    `json:"code"`
	Purpose     string    `json:"purpose"`
	RequestedAt time.Time `json:"requested_at"`
}
