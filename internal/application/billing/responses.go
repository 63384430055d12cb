package billing

import (
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ProfileResponse vista de un perfil recurrente para la API.
func ProfileResponse(p *entity.RecurringProfile) *dto.RecurringProfileResponse {
	out := &dto.RecurringProfileResponse{
		ID:                     p.ID,
		ClientID:               p.ClientID,
		Currency:               p.Currency,
		Frequency:              string(p.Frequency),
		Status:                 string(p.Status),
		StartDate:              p.StartDate.Format(dto.DateLayout),
		DayOfMonth:             p.DayOfMonth,
		NextDueDate:            p.NextDueDate.Format(dto.DateLayout),
		OccurrencesGenerated:   p.OccurrencesGenerated,
		MaxOccurrences:         p.MaxOccurrences,
		PaymentTermsDays:       p.PaymentTermsDays,
		LastGeneratedInvoiceID: p.LastGeneratedInvoiceID,
	}
	if p.EndDate != nil {
		out.EndDate = p.EndDate.Format(dto.DateLayout)
	}
	return out
}

// PaymentIntentResponse vista de un intento de pago.
func PaymentIntentResponse(pi *entity.PaymentIntent) *dto.PaymentIntentResponse {
	return &dto.PaymentIntentResponse{
		ID:        pi.ID,
		InvoiceID: pi.InvoiceID,
		Amount:    pi.Amount,
		Currency:  pi.Currency,
		Status:    string(pi.Status),
		Reason:    pi.FailureMessage,
	}
}

// RateResponse vista de una tasa registrada.
func RateResponse(r *entity.ExchangeRate) *dto.ExchangeRateResponse {
	return &dto.ExchangeRateResponse{
		ID:             r.ID,
		BaseCurrency:   r.BaseCurrency,
		TargetCurrency: r.TargetCurrency,
		Rate:           r.Rate,
		FetchedAt:      r.FetchedAt,
		Source:         r.Source,
	}
}
