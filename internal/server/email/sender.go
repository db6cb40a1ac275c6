package email

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// Sender sends verification emails over SMTP.
type Sender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSender(host string, port int, username, password, from string) *Sender {
	dialer := gomail.NewDialer(host, port, username, password)
	dialer.SSL = false
	return &Sender{
		dialer: dialer,
		from:   from,
	}
}

func (s *Sender) SendVerificationCode(recipient string, username string, code string) error {
	m := s.buildMessage(recipient, username, code)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	// gomail has no dial deadline of its own; cap the whole send.
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send error: %w", err)
		}
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("smtp send timed out")
	}
}

func (s *Sender) buildMessage(recipient, username, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetAddressHeader("To", recipient, username)
	m.SetHeader("Subject", "Verify your account")
	m.SetBody("text/plain", fmt.Sprintf("Your verification code is: %s", code))
	return m
}
