package email

import (
	"context"
	"fmt"
	"net/smtp"
)

type InvitationData struct {
	Email       string
	Name        string
	InviterName string
	Role        string
	SetupLink   string
}

type BorrowDecisionData struct {
	Email     string
	BookTitle string
	Approved  bool
	DueDate   string
}

type EmailService interface {
	SendInvitationEmail(ctx context.Context, data InvitationData) error
	SendBorrowDecisionEmail(ctx context.Context, data BorrowDecisionData) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
}

// NewSMTPEmailService sends plain-text mail through a local relay. Good
// enough for the library's volume; swap the interface for a provider SDK
// if that changes.
func NewSMTPEmailService(host, port, from string) EmailService {
	return &smtpEmailService{
		smtpAddr: host + ":" + port,
		smtpFrom: from,
	}
}

func (s *smtpEmailService) SendInvitationEmail(ctx context.Context, data InvitationData) error {
	roleText := "usuario"
	if data.Role == "librarian" {
		roleText = "bibliotecario"
	}

	subject := "Invitación a la Biblioteca de Física"
	body := fmt.Sprintf(`Hola %s,

%s te ha invitado a la Biblioteca de Física como %s.

Configura tu contraseña con el siguiente enlace (válido 7 días):
%s

Si no esperabas esta invitación, ignora este correo.`,
		data.Name, data.InviterName, roleText, data.SetupLink)

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) SendBorrowDecisionEmail(ctx context.Context, data BorrowDecisionData) error {
	var subject, body string
	if data.Approved {
		subject = "Préstamo aprobado"
		body = fmt.Sprintf(`Tu solicitud de préstamo de "%s" ha sido aprobada.

Fecha de devolución: %s`, data.BookTitle, data.DueDate)
	} else {
		subject = "Préstamo rechazado"
		body = fmt.Sprintf(`Tu solicitud de préstamo de "%s" ha sido rechazada.

Consulta con la biblioteca para más información.`, data.BookTitle)
	}

	return s.send(data.Email, subject, body)
}

func (s *smtpEmailService) send(to, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.smtpFrom, to, subject, body))
	return smtp.SendMail(s.smtpAddr, nil, s.smtpFrom, []string{to}, msg)
}
