package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/itempairing"
	"github.com/MrJamesThe3rd/docmatch/internal/matching"
	"github.com/MrJamesThe3rd/docmatch/internal/pairing"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

func field(name string, value any) document.Field {
	return document.Field{Name: name, Value: value}
}

func project(t *testing.T, p document.Payload) *document.Record {
	t.Helper()

	rec, err := document.Project(&p)
	require.NoError(t, err)

	return rec
}

func invoice(t *testing.T) *document.Record {
	return project(t, document.Payload{
		ID:   "inv-1",
		Kind: "invoice",
		Headers: document.Fields{
			field("orderReference", "PO-1"),
			field("incVatAmount", "125.00"),
			field("currency", "SEK"),
		},
		Items: []document.ItemPayload{{Fields: document.Fields{
			field("purchaseReceiptDatainventory", "A1"),
			field("text", "Bolt"),
			field("purchaseReceiptDataUnitAmount", "10"),
			field("purchaseReceiptDataQuantity", "5"),
			field("debit", "50"),
		}}},
	})
}

func purchaseOrder(t *testing.T) *document.Record {
	return project(t, document.Payload{
		ID:   "po-1",
		Kind: "purchase-order",
		Site: "north",
		Headers: document.Fields{
			field("orderNumber", "PO-1"),
			field("incVatAmount", "125.00"),
			field("currency", "SEK"),
		},
		Items: []document.ItemPayload{
			{Fields: document.Fields{
				field("lineNumber", "1"),
				field("inventory", "A1"),
				field("description", "Bolt"),
				field("unitAmount", "10"),
				field("quantityToInvoice", "10"),
			}},
			{Fields: document.Fields{
				field("lineNumber", "2"),
				field("inventory", "B2"),
				field("description", "Nut"),
				field("unitAmount", "2"),
				field("quantityToInvoice", "1"),
			}},
		},
	})
}

func delivery(t *testing.T) *document.Record {
	return project(t, document.Payload{
		ID:   "dr-1",
		Kind: "delivery-receipt",
		Items: []document.ItemPayload{{Fields: document.Fields{
			field("lineNumber", "1"),
			field("inventoryNumber", "A1"),
			field("inventoryDescription", "Bolt"),
			field("purchaseOrderNumber", "PO-1"),
			field("quantity", "5"),
		}}},
	})
}

func engine(embedder itempairing.Embedder) matching.Engine {
	return matching.Engine{
		Predictor: pairing.NewPredictor(nil, pairing.DefaultConfig()),
		Items:     itempairing.NewService(embedder),
		Assembler: report.NewAssembler(report.DefaultThresholds()),
		Options:   pairing.DefaultOptions(),
	}
}

func TestService_Match(t *testing.T) {
	type testCase struct {
		name       string
		target     func(t *testing.T) *document.Record
		candidates func(t *testing.T) []*document.Record
		noEmbedder bool
		setupMock  func(repo *matching.MockRepository, saver *matching.MockReportSaver)
		wantLabels []string
		wantDocs   []string
	}

	tests := []testCase{
		{
			name:   "reference match with item deviations",
			target: invoice,
			candidates: func(t *testing.T) []*document.Record {
				return []*document.Record{purchaseOrder(t)}
			},
			setupMock: func(repo *matching.MockRepository, saver *matching.MockReportSaver) {
				repo.EXPECT().FindLinks(gomock.Any(), []string{"inv-1", "po-1"}).Return(nil, nil)
				saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
				repo.EXPECT().CreateLinks(gomock.Any(), []pairing.Link{{A: "inv-1", B: "po-1"}}).Return(nil)
			},
			wantLabels: []string{report.LabelMatched, report.LabelMatchedItems, report.LabelPartialDelivery},
			wantDocs:   []string{"inv-1", "po-1"},
		},
		{
			name:   "no partner",
			target: invoice,
			candidates: func(t *testing.T) []*document.Record {
				po := purchaseOrder(t)
				po.OrderRef = "PO-9"

				return []*document.Record{po}
			},
			setupMock: func(repo *matching.MockRepository, saver *matching.MockReportSaver) {
				repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, nil)
				saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantLabels: []string{report.LabelNoMatch},
			wantDocs:   []string{"inv-1"},
		},
		{
			name:   "item comparison unavailable",
			target: invoice,
			candidates: func(t *testing.T) []*document.Record {
				return []*document.Record{purchaseOrder(t)}
			},
			noEmbedder: true,
			setupMock: func(repo *matching.MockRepository, saver *matching.MockReportSaver) {
				repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, nil)
				saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
				repo.EXPECT().CreateLinks(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantLabels: []string{report.LabelMatched, report.LabelItemsUnavailable},
			wantDocs:   []string{"inv-1", "po-1"},
		},
		{
			name: "unknown kind is flagged as pairing error",
			target: func(*testing.T) *document.Record {
				return &document.Record{ID: "x-1", Kind: document.Kind("receipt")}
			},
			candidates: func(t *testing.T) []*document.Record {
				return []*document.Record{purchaseOrder(t)}
			},
			setupMock: func(repo *matching.MockRepository, saver *matching.MockReportSaver) {
				repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, nil)
				saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantLabels: []string{report.LabelNoMatch, report.LabelPairingError},
			wantDocs:   []string{"x-1"},
		},
		{
			name:   "three-way match",
			target: invoice,
			candidates: func(t *testing.T) []*document.Record {
				return []*document.Record{purchaseOrder(t), delivery(t)}
			},
			setupMock: func(repo *matching.MockRepository, saver *matching.MockReportSaver) {
				repo.EXPECT().FindLinks(gomock.Any(), []string{"inv-1", "po-1", "dr-1"}).Return(nil, nil)
				saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
				repo.EXPECT().CreateLinks(gomock.Any(), []pairing.Link{{A: "inv-1", B: "dr-1"}}).Return(nil)
			},
			wantLabels: []string{report.LabelMatched, report.LabelMatchedItems, report.LabelThreeWayMatch},
			wantDocs:   []string{"inv-1", "dr-1"},
		},
		{
			name:   "link store failures do not fail the match",
			target: invoice,
			candidates: func(t *testing.T) []*document.Record {
				return []*document.Record{purchaseOrder(t)}
			},
			setupMock: func(repo *matching.MockRepository, saver *matching.MockReportSaver) {
				repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
				saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
				repo.EXPECT().CreateLinks(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
			},
			wantLabels: []string{report.LabelMatched, report.LabelMatchedItems, report.LabelPartialDelivery},
			wantDocs:   []string{"inv-1", "po-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := matching.NewMockRepository(ctrl)
			saver := matching.NewMockReportSaver(ctrl)
			tt.setupMock(repo, saver)

			var embedder itempairing.Embedder
			if !tt.noEmbedder {
				embedder = itempairing.NewMockEmbedder(ctrl)
			}

			svc := matching.NewService(repo, saver, engine(embedder))

			candidates := tt.candidates(t)

			rep, err := svc.Match(context.Background(), tt.target(t), candidates)
			require.NoError(t, err)

			assert.Equal(t, tt.wantLabels, rep.Labels)
			assert.Equal(t, tt.wantDocs, rep.DocumentIDs())

			n, ok := rep.Metric(report.MetricCandidateDocuments)
			require.True(t, ok)
			assert.Equal(t, len(candidates), n)
		})
	}
}

func TestService_MatchItemPairs(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)

	repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, nil)
	repo.EXPECT().CreateLinks(gomock.Any(), gomock.Any()).Return(nil)

	svc := matching.NewService(repo, nil, engine(itempairing.NewMockEmbedder(ctrl)))

	rep, err := svc.Match(context.Background(), invoice(t), []*document.Record{purchaseOrder(t)})
	require.NoError(t, err)

	require.Len(t, rep.ItemPairs, 2)

	pair := rep.ItemPairs[0]
	assert.Equal(t, report.MatchTypeMatched, pair.MatchType)
	assert.Equal(t, 0, *pair.ItemIndices[0])
	assert.Equal(t, 0, *pair.ItemIndices[1])
	assert.NotEmpty(t, pair.Deviations)

	left := rep.ItemPairs[1]
	assert.Equal(t, report.MatchTypeUnmatched, left.MatchType)
	assert.Nil(t, left.ItemIndices[0])
	assert.Equal(t, 1, *left.ItemIndices[1])
	require.Len(t, left.Deviations, 1)
}

func TestService_MatchErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := matching.NewMockRepository(ctrl)
	saver := matching.NewMockReportSaver(ctrl)

	svc := matching.NewService(repo, saver, engine(itempairing.NewMockEmbedder(ctrl)))

	_, err := svc.Match(context.Background(), nil, nil)
	assert.ErrorIs(t, err, matching.ErrNoTarget)

	repo.EXPECT().FindLinks(gomock.Any(), gomock.Any()).Return(nil, nil)
	saver.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err = svc.Match(context.Background(), invoice(t), nil)
	assert.Error(t, err)
}
