package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	config "github.com/kevinmwangi/nyumbani/configs"
	"github.com/kevinmwangi/nyumbani/models"
	"gorm.io/gorm"
)

// ReceiptService renders a PDF receipt for a settled payment and uploads it,
// storing the URL back on the payment. Everything here is best-effort; a
// failed receipt never affects the payment itself.
type ReceiptService struct {
	DB *gorm.DB
}

func NewReceiptService(db *gorm.DB) *ReceiptService {
	return &ReceiptService{DB: db}
}

func (s *ReceiptService) GenerateForPayment(paymentID uuid.UUID) {
	var payment models.Payment
	if err := s.DB.Preload("Tenant").First(&payment, "id = ?", paymentID).Error; err != nil {
		log.Printf("🔥 Receipt generation: payment %s not found: %v", paymentID, err)
		return
	}
	if payment.Status != models.PaymentSuccessful {
		return
	}

	htmlData, err := renderReceiptHTML(payment)
	if err != nil {
		log.Printf("🔥 Failed to render receipt HTML for payment %s: %v", payment.ID, err)
		return
	}

	pdfBytes, err := printPDFFromHTML(htmlData)
	if err != nil {
		log.Printf("🔥 Failed to generate receipt PDF for payment %s: %v", payment.ID, err)
		return
	}

	uploadURL, err := uploadReceipt(pdfBytes, payment.ID.String())
	if err != nil {
		log.Printf("🔥 Failed to upload receipt for payment %s: %v", payment.ID, err)
		return
	}

	if err := s.DB.Model(&payment).Update("receipt_url", uploadURL).Error; err != nil {
		log.Printf("🔥 Failed to save receipt URL for payment %s: %v", payment.ID, err)
		return
	}
	log.Printf("✅ Receipt generated for payment %s", payment.ID)
}

func renderReceiptHTML(payment models.Payment) (string, error) {
	tmpl, err := template.ParseFiles("templates/receipt.html")
	if err != nil {
		return "", err
	}

	paidAt := payment.CreatedAt
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}

	data := map[string]interface{}{
		"TenantName":      payment.Tenant.FullName,
		"Amount":          fmt.Sprintf("%.2f", payment.Amount),
		"Method":          string(payment.Method),
		"TransactionCode": payment.TransactionCode,
		"PaidAt":          paidAt.Format("02 Jan 2006 15:04"),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func printPDFFromHTML(html string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pdfBytes []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBytes = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBytes, nil
}

func uploadReceipt(pdfBytes []byte, paymentID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	publicID := fmt.Sprintf("receipts/receipt-%s", paymentID)
	resp, err := cld.Upload.Upload(ctx, bytes.NewReader(pdfBytes), uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}
