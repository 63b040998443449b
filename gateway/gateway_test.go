package gateway_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tributo/courier/company"
	"github.com/tributo/courier/document"
	"github.com/tributo/courier/gateway"
)

func TestServiceURL(t *testing.T) {
	urls := company.ServiceURLs{
		Invoice:             "https://sunat.test/billService",
		PerceptionRetention: "https://sunat.test/perception",
	}

	tests := []struct {
		docType document.Type
		want    string
	}{
		{document.TypeInvoice, urls.Invoice},
		{document.TypeCreditNote, urls.Invoice},
		{document.TypeDebitNote, urls.Invoice},
		{document.TypeVoidedDocument, urls.Invoice},
		{document.TypeSummaryDocument, urls.Invoice},
		{document.TypePerception, urls.PerceptionRetention},
		{document.TypeRetention, urls.PerceptionRetention},
	}

	for _, tt := range tests {
		t.Run(string(tt.docType), func(t *testing.T) {
			if got := gateway.ServiceURL(tt.docType, urls); got != tt.want {
				t.Errorf("ServiceURL(%q) = %q, want %q", tt.docType, got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	te := &gateway.TransientError{Op: "send", Err: errors.New("connection reset")}

	if !gateway.IsTransient(te) {
		t.Error("IsTransient should report a TransientError")
	}
	if !gateway.IsTransient(fmt.Errorf("wrapped: %w", te)) {
		t.Error("IsTransient should see through wrapping")
	}
	if gateway.IsTransient(errors.New("plain")) {
		t.Error("IsTransient should reject a plain error")
	}
}
