// internal/workers/notification/notify-lead/handler_test.go
package notifylead

import (
	"context"
	"testing"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmailSender struct {
	input *ses.SendEmailInput
	err   error
}

func (s *stubEmailSender) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

type stubSMSSender struct {
	input *sns.PublishInput
}

func (s *stubSMSSender) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	s.input = input
	return &sns.PublishOutput{MessageId: aws.String("sms-1")}, nil
}

func newTestHandler(t *testing.T, email EmailSender, sms SMSSender) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler, err := NewHandler(DefaultConfig(), db, email, sms, logger.NewTestLogger(t))
	require.NoError(t, err)
	return handler, mock
}

func expectLead(mock sqlmock.Sqlmock, assignedTo string) {
	mock.ExpectQuery(`SELECT id, kind, province, municipality`).
		WithArgs("lead-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "kind", "province", "municipality", "name", "phone", "email", "assigned_to", "status"}).
			AddRow("lead-1", "owner", "Granada", "Motril", "Ana", "+34600000001", nil, assignedTo, "assigned"))
}

func expectFranchisee(mock sqlmock.Sqlmock, email, phone interface{}) {
	mock.ExpectQuery(`SELECT id, name, email, phone, active`).
		WithArgs("fr-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "phone", "active"}).
			AddRow("fr-2", "Paco", email, phone, true))
}

func TestExecuteSendsEmail(t *testing.T) {
	emailSender := &stubEmailSender{}
	handler, mock := newTestHandler(t, emailSender, nil)

	expectLead(mock, "fr-2")
	expectFranchisee(mock, "paco@example.com", nil)

	output, err := handler.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, ChannelEmail, output.Channel)
	assert.Equal(t, "paco@example.com", output.Recipient)
	assert.Equal(t, "msg-1", output.MessageID)

	require.NotNil(t, emailSender.input)
	assert.Equal(t, []string{"paco@example.com"}, emailSender.input.Destination.ToAddresses)
	subject := aws.ToString(emailSender.input.Message.Subject.Data)
	assert.Contains(t, subject, "Motril")
	body := aws.ToString(emailSender.input.Message.Body.Text.Data)
	assert.Contains(t, body, "Paco")
	assert.Contains(t, body, "Ana")
}

func TestExecuteFallsBackToSMS(t *testing.T) {
	smsSender := &stubSMSSender{}
	handler, mock := newTestHandler(t, &stubEmailSender{}, smsSender)

	expectLead(mock, "fr-2")
	expectFranchisee(mock, nil, "+34699999999")

	output, err := handler.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, output.Channel)
	assert.Equal(t, "sms-1", output.MessageID)

	require.NotNil(t, smsSender.input)
	assert.Equal(t, "+34699999999", aws.ToString(smsSender.input.PhoneNumber))
	assert.Contains(t, aws.ToString(smsSender.input.Message), "Motril")
}

func TestExecuteNoContactIsDisabled(t *testing.T) {
	handler, mock := newTestHandler(t, &stubEmailSender{}, &stubSMSSender{})

	expectLead(mock, "fr-2")
	expectFranchisee(mock, nil, nil)

	output, err := handler.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, output.Channel)
}

func TestExecuteUnassignedLeadIsDisabled(t *testing.T) {
	handler, mock := newTestHandler(t, &stubEmailSender{}, nil)

	expectLead(mock, "")

	output, err := handler.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
}

func TestExecuteDisabledConfigShortCircuits(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := DefaultConfig()
	cfg.Enabled = false
	handler, err := NewHandler(cfg, db, &stubEmailSender{}, nil, logger.NewTestLogger(t))
	require.NoError(t, err)

	expectLead(mock, "fr-2")

	output, err := handler.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
}

func TestExecuteLeadNotFound(t *testing.T) {
	handler, mock := newTestHandler(t, &stubEmailSender{}, nil)

	mock.ExpectQuery(`SELECT id, kind, province, municipality`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "kind", "province", "municipality", "name", "phone", "email", "assigned_to", "status"}))

	_, err := handler.Execute(context.Background(), &Input{LeadID: "missing"})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeLeadNotFound, stdErr.Code)
}

func TestExecuteSendFailureSurfacesRetryableError(t *testing.T) {
	emailSender := &stubEmailSender{err: assert.AnError}
	handler, mock := newTestHandler(t, emailSender, nil)

	expectLead(mock, "fr-2")
	expectFranchisee(mock, "paco@example.com", nil)

	_, err := handler.Execute(context.Background(), &Input{LeadID: "lead-1"})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
