package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Facturacion-api/internal/application/billing"
)

// Roles reconocidos en el claim role del token.
const (
	RoleAdmin   = "admin"
	RoleBilling = "billing"
	RoleViewer  = "viewer"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Docs       *billing.DocumentService
	Ledger     *billing.PaymentLedger
	Reconciler *billing.Reconciler
	Scheduler  *billing.RecurringScheduler
	Rates      *billing.RateService
	PDF        billing.SnapshotRenderer
	UBL        billing.SnapshotRenderer
	Webhook    eventParser
	Clock      billing.Clock
	Log        zerolog.Logger
	JWTSecret  string
	JWTIssuer  string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Webhooks (público, autenticado por firma del proveedor)
	webhookHandler := NewWebhookHandler(deps.Webhook, deps.Reconciler, deps.Log)
	app.Post("/webhooks/stripe", webhookHandler.Stripe)

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	write := RequireRole(RoleAdmin, RoleBilling)
	operator := RequireRole(RoleAdmin)

	// Invoices
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Docs, deps.Ledger, deps.PDF, deps.UBL, deps.Clock)
	invoices.Post("/mark-overdue", operator, invoiceHandler.MarkOverdue)
	invoices.Post("/", write, invoiceHandler.Create)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", write, invoiceHandler.Update)
	invoices.Delete("/:id", write, invoiceHandler.Delete)
	invoices.Post("/:id/send", write, invoiceHandler.Send)
	invoices.Post("/:id/view", invoiceHandler.View)
	invoices.Post("/:id/cancel", write, invoiceHandler.Cancel)
	invoices.Post("/:id/payments", write, invoiceHandler.RecordPayment)
	invoices.Post("/:id/payment-intents", write, invoiceHandler.RegisterPaymentIntent)
	invoices.Get("/:id/pdf", invoiceHandler.PDF)
	invoices.Get("/:id/ubl", invoiceHandler.UBL)
	api.Get("/payment-intents/unapplied", operator, invoiceHandler.UnappliedPaymentIntents)

	// Quotes
	quotes := api.Group("/quotes")
	quoteHandler := NewQuoteHandler(deps.Docs, deps.PDF, deps.Clock)
	quotes.Post("/expire", operator, quoteHandler.Expire)
	quotes.Post("/", write, quoteHandler.Create)
	quotes.Get("/:id", quoteHandler.GetByID)
	quotes.Put("/:id", write, quoteHandler.Update)
	quotes.Delete("/:id", write, quoteHandler.Delete)
	quotes.Post("/:id/send", write, quoteHandler.Send)
	quotes.Post("/:id/accept", write, quoteHandler.Accept)
	quotes.Post("/:id/reject", write, quoteHandler.Reject)
	quotes.Post("/:id/convert", write, quoteHandler.Convert)
	quotes.Get("/:id/pdf", quoteHandler.PDF)

	// Credit notes
	creditNotes := api.Group("/credit-notes")
	creditNoteHandler := NewCreditNoteHandler(deps.Docs, deps.Ledger, deps.UBL)
	creditNotes.Post("/", write, creditNoteHandler.Create)
	creditNotes.Get("/:id", creditNoteHandler.GetByID)
	creditNotes.Put("/:id", write, creditNoteHandler.Update)
	creditNotes.Delete("/:id", write, creditNoteHandler.Delete)
	creditNotes.Post("/:id/send", write, creditNoteHandler.Send)
	creditNotes.Post("/:id/apply", write, creditNoteHandler.Apply)
	creditNotes.Get("/:id/ubl", creditNoteHandler.UBL)

	// Recurring profiles
	profiles := api.Group("/recurring-profiles")
	recurringHandler := NewRecurringHandler(deps.Scheduler, deps.Clock)
	profiles.Post("/run", operator, recurringHandler.RunDue)
	profiles.Post("/", write, recurringHandler.Create)
	profiles.Get("/:id", recurringHandler.GetByID)
	profiles.Post("/:id/pause", write, recurringHandler.Pause)
	profiles.Post("/:id/resume", write, recurringHandler.Resume)
	profiles.Post("/:id/cancel", write, recurringHandler.Cancel)
	profiles.Post("/:id/generate", write, recurringHandler.Generate)

	// Exchange rates
	rates := api.Group("/rates")
	rateHandler := NewRateHandler(deps.Rates, deps.Clock)
	rates.Post("/", operator, rateHandler.Record)
	rates.Get("/convert", rateHandler.Convert)
}
