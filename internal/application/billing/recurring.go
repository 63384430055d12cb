package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/billing"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/rs/zerolog"
)

// RecurringScheduler materializa facturas desde perfiles recurrentes. La factura y el avance
// del perfil se escriben en la misma transacción.
type RecurringScheduler struct {
	tx       TxRunner
	docs     *DocumentService
	clock    Clock
	settings Settings
	log      zerolog.Logger
}

// NewRecurringScheduler construye el programador sobre la ruta de creación de DocumentService.
func NewRecurringScheduler(tx TxRunner, docs *DocumentService, clock Clock, settings Settings, log zerolog.Logger) *RecurringScheduler {
	return &RecurringScheduler{tx: tx, docs: docs, clock: clock, settings: settings, log: log}
}

// RunReport resumen de una corrida.
type RunReport struct {
	Generated  int      `json:"generated"`
	Failed     int      `json:"failed"`
	InvoiceIDs []string `json:"invoice_ids"`
}

// CreateProfile crea un perfil activo. Las líneas plantilla se validan con el calculador.
func (s *RecurringScheduler) CreateProfile(ctx context.Context, ownerID string, req dto.CreateRecurringProfileRequest) (*entity.RecurringProfile, error) {
	freq := entity.Frequency(req.Frequency)
	if !freq.IsValid() {
		return nil, domain.NewValidationError("frequency", fmt.Sprintf("frecuencia no soportada: %q", req.Frequency))
	}
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, domain.NewValidationError("client_id", "es obligatorio")
	}
	start, ok, err := dto.ParseDate(req.StartDate)
	if err != nil || !ok {
		return nil, domain.NewValidationError("start_date", "fecha inválida")
	}
	end, hasEnd, err := dto.ParseDate(req.EndDate)
	if err != nil {
		return nil, domain.NewValidationError("end_date", "fecha inválida")
	}
	if hasEnd && end.Before(start) {
		return nil, domain.NewValidationError("end_date", "no puede ser anterior a start_date")
	}
	if req.DayOfMonth != nil && (*req.DayOfMonth < 1 || *req.DayOfMonth > 31) {
		return nil, domain.NewValidationError("day_of_month", "debe estar entre 1 y 31")
	}
	if req.MaxOccurrences != nil && *req.MaxOccurrences < 1 {
		return nil, domain.NewValidationError("max_occurrences", "debe ser mayor que cero")
	}
	currency := req.Currency
	if currency == "" {
		currency = s.settings.BaseCurrency
	}
	if currency, err = NormalizeCurrency(currency); err != nil {
		return nil, err
	}
	lines, err := linesFromRequest(req.LineItems)
	if err != nil {
		return nil, err
	}
	discount := billing.Discount{Type: entity.DiscountType(req.DiscountType), Value: req.DiscountValue}
	if discount.Type == "" {
		discount.Type = entity.DiscountNone
	}
	probe := entity.Document{LineItems: lines}
	if err := billing.ApplyTotals(&probe, discount); err != nil {
		return nil, err
	}
	terms := s.settings.PaymentTermsDays
	if req.PaymentTermsDays != nil {
		terms = *req.PaymentTermsDays
	}

	now := s.clock.Now()
	p := &entity.RecurringProfile{
		ID:               uuid.New().String(),
		OwnerID:          ownerID,
		ClientID:         strings.TrimSpace(req.ClientID),
		Currency:         currency,
		Frequency:        freq,
		StartDate:        start,
		DayOfMonth:       req.DayOfMonth,
		NextDueDate:      billing.FirstDueDate(freq, start, req.DayOfMonth),
		MaxOccurrences:   req.MaxOccurrences,
		Status:           entity.ProfileStatusActive,
		PaymentTermsDays: terms,
		DiscountType:     discount.Type,
		DiscountValue:    discount.Value,
		Notes:            req.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if hasEnd {
		p.EndDate = &end
	}
	p.LineItems = probe.LineItems
	for i := range p.LineItems {
		p.LineItems[i].ID = uuid.New().String()
		p.LineItems[i].DocumentType = entity.DocumentTypeRecurringProfile
		p.LineItems[i].DocumentID = p.ID
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		if err := r.Profiles.Create(ctx, p); err != nil {
			return fmt.Errorf("crear perfil: %w", err)
		}
		return r.LineItems.Replace(ctx, entity.DocumentTypeRecurringProfile, p.ID, p.LineItems)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("profile_id", p.ID).Str("frequency", string(freq)).Time("next_due_date", p.NextDueDate).Msg("perfil recurrente creado")
	return p, nil
}

func loadProfile(ctx context.Context, r Repos, ownerID, id string, forUpdate bool) (*entity.RecurringProfile, error) {
	get := r.Profiles.GetByID
	if forUpdate {
		get = r.Profiles.GetForUpdate
	}
	p, err := get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("leer perfil: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if err := checkOwner(ownerID, p.OwnerID); err != nil {
		return nil, err
	}
	p.LineItems, err = r.LineItems.ListByDocument(ctx, entity.DocumentTypeRecurringProfile, p.ID)
	if err != nil {
		return nil, fmt.Errorf("leer líneas plantilla: %w", err)
	}
	return p, nil
}

// GetProfile devuelve el perfil con sus líneas plantilla.
func (s *RecurringScheduler) GetProfile(ctx context.Context, ownerID, id string) (*entity.RecurringProfile, error) {
	var p *entity.RecurringProfile
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		p, err = loadProfile(ctx, r, ownerID, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Pause active -> paused.
func (s *RecurringScheduler) Pause(ctx context.Context, ownerID, id string) (*entity.RecurringProfile, error) {
	return s.transition(ctx, ownerID, id, entity.ProfileStatusPaused)
}

// Resume paused -> active. Si next_due_date quedó atrás, la próxima corrida recupera las
// ocurrencias pendientes.
func (s *RecurringScheduler) Resume(ctx context.Context, ownerID, id string) (*entity.RecurringProfile, error) {
	return s.transition(ctx, ownerID, id, entity.ProfileStatusActive)
}

// Cancel active|paused -> cancelled. El perfil se conserva.
func (s *RecurringScheduler) Cancel(ctx context.Context, ownerID, id string) (*entity.RecurringProfile, error) {
	return s.transition(ctx, ownerID, id, entity.ProfileStatusCancelled)
}

func (s *RecurringScheduler) transition(ctx context.Context, ownerID, id string, target entity.ProfileStatus) (*entity.RecurringProfile, error) {
	var p *entity.RecurringProfile
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		p, err = loadProfile(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		if target == entity.ProfileStatusCompleted {
			return &domain.InvalidTransitionError{Document: "recurring_profile", Current: string(p.Status), Target: string(target)}
		}
		prev := p.Status
		if p.Status, err = billing.ProfileLifecycle.Transition(p.Status, target); err != nil {
			return err
		}
		p.UpdatedAt = s.clock.Now()
		if err := r.Profiles.Update(ctx, p); err != nil {
			return fmt.Errorf("actualizar perfil: %w", err)
		}
		s.log.Info().Str("profile_id", p.ID).Str("from", string(prev)).Str("to", string(target)).Msg("estado de perfil actualizado")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Generate materializa la ocurrencia actual del perfil sin importar la fecha.
func (s *RecurringScheduler) Generate(ctx context.Context, ownerID, id string) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		p, err := loadProfile(ctx, r, ownerID, id, true)
		if err != nil {
			return err
		}
		inv, err = s.generateInTx(ctx, r, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// generateInTx crea la factura de p.NextDueDate y avanza el perfil.
func (s *RecurringScheduler) generateInTx(ctx context.Context, r Repos, p *entity.RecurringProfile) (*entity.Invoice, error) {
	if p.Status != entity.ProfileStatusActive {
		return nil, &domain.InvalidTransitionError{Document: "recurring_profile", Current: string(p.Status), Target: "generate"}
	}
	issue := p.NextDueDate
	profileID := p.ID
	inv, err := s.docs.createInvoiceInTx(ctx, r, invoiceDraft{
		draftFields: draftFields{
			ownerID:   p.OwnerID,
			clientID:  p.ClientID,
			currency:  p.Currency,
			notes:     p.Notes,
			issueDate: issue,
			discount:  billing.Discount{Type: p.DiscountType, Value: p.DiscountValue},
			lines:     cloneLines(p.LineItems),
		},
		dueDate:   issue.AddDate(0, 0, p.PaymentTermsDays),
		profileID: &profileID,
	})
	if err != nil {
		return nil, err
	}

	p.OccurrencesGenerated++
	p.NextDueDate = billing.NextDueDate(p)
	p.LastGeneratedInvoiceID = &inv.ID
	if billing.ShouldComplete(p) {
		if p.Status, err = billing.ProfileLifecycle.Transition(p.Status, entity.ProfileStatusCompleted); err != nil {
			return nil, err
		}
	}
	p.UpdatedAt = s.clock.Now()
	if err := r.Profiles.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("actualizar perfil: %w", err)
	}
	s.log.Info().Str("profile_id", p.ID).Str("invoice_id", inv.ID).Int("occurrence", p.OccurrencesGenerated).
		Time("next_due_date", p.NextDueDate).Str("status", string(p.Status)).Msg("factura recurrente generada")
	return inv, nil
}

// RunDue genera todas las ocurrencias vencidas a asOf, cada una en su propia transacción.
// Un perfil atrasado recupera como máximo RecurringMaxCatchUp ocurrencias por corrida.
// Un error en un perfil no detiene a los demás.
func (s *RecurringScheduler) RunDue(ctx context.Context, asOf time.Time) (RunReport, error) {
	var report RunReport
	var ids []string
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		var err error
		ids, err = r.Profiles.ListDue(ctx, asOf)
		return err
	})
	if err != nil {
		return report, fmt.Errorf("listar perfiles vencidos: %w", err)
	}

	limit := max(s.settings.RecurringMaxCatchUp, 1)
	for _, id := range ids {
		for i := 0; i < limit; i++ {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			inv, err := s.generateDue(ctx, id, asOf)
			if err != nil {
				report.Failed++
				s.log.Error().Err(err).Str("profile_id", id).Msg("no se pudo generar la factura recurrente")
				break
			}
			if inv == nil {
				break
			}
			report.Generated++
			report.InvoiceIDs = append(report.InvoiceIDs, inv.ID)
		}
	}
	s.log.Info().Int("generated", report.Generated).Int("failed", report.Failed).Time("as_of", asOf).Msg("corrida de recurrencias")
	return report, nil
}

// generateDue devuelve (nil, nil) si el perfil ya no está vencido.
func (s *RecurringScheduler) generateDue(ctx context.Context, id string, asOf time.Time) (*entity.Invoice, error) {
	var inv *entity.Invoice
	err := s.tx.RunInTx(ctx, func(ctx context.Context, r Repos) error {
		inv = nil
		p, err := loadProfile(ctx, r, "", id, true)
		if err != nil {
			return err
		}
		if !billing.IsDue(p, asOf) {
			return nil
		}
		inv, err = s.generateInTx(ctx, r, p)
		return err
	})
	return inv, err
}
