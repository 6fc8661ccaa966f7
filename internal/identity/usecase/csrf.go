package usecase

import "context"

const maxCSRFTokenLen = 64

type CSRFTokenInput struct {
	Current string
}

type CSRFTokenOutput struct {
	Token string
	// Issued is true when Token is new and must be set as a cookie.
	Issued bool
}

func (s *Usecase) CSRFToken(ctx context.Context, in CSRFTokenInput) (*CSRFTokenOutput, error) {
	_, span := s.startSpan(ctx, "CSRFToken")
	defer span.End()

	if in.Current != "" && len(in.Current) <= maxCSRFTokenLen {
		return &CSRFTokenOutput{Token: in.Current}, nil
	}

	return &CSRFTokenOutput{Token: s.uuid.Generate(), Issued: true}, nil
}
