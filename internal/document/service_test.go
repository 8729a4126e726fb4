package document_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docmatch/internal/document"
)

func payload(id, kind string, headers ...document.Field) document.Payload {
	return document.Payload{ID: id, Kind: kind, Headers: headers}
}

func TestService_Save(t *testing.T) {
	type testCase struct {
		name      string
		payload   document.Payload
		setupMock func(m *document.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:    "Success",
			payload: payload("po-1", "purchase-order", document.Field{Name: "orderNumber", Value: "PO-1"}),
			setupMock: func(m *document.MockRepository) {
				m.EXPECT().
					SaveDocument(gomock.Any(), gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *document.Payload, rec *document.Record) error {
						assert.Equal(t, "po-1", p.ID)
						assert.Equal(t, "PO-1", rec.OrderRef)
						return nil
					})
			},
		},
		{
			name:    "UnknownKind",
			payload: payload("x-1", "receipt"),
			wantErr: document.ErrUnknownKind,
		},
		{
			name:    "MissingID",
			payload: payload(" ", "invoice"),
			wantErr: document.ErrMissingID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := document.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := document.NewService(repo)
			rec, err := svc.Save(context.Background(), &tt.payload)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, rec)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.payload.ID, rec.ID)
		})
	}
}

func TestService_Record(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := document.NewMockRepository(ctrl)

	p := payload("inv-1", "invoice", document.Field{Name: "orderReference", Value: "PO-1"})

	repo.EXPECT().GetDocument(gomock.Any(), "inv-1").Return(&p, nil)
	repo.EXPECT().GetDocument(gomock.Any(), "missing").Return(nil, document.ErrNotFound)

	svc := document.NewService(repo)

	rec, err := svc.Record(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, document.KindInvoice, rec.Kind)
	assert.Equal(t, "PO-1", rec.OrderRef)

	_, err = svc.Record(context.Background(), "missing")
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestService_Candidates(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := document.NewMockRepository(ctrl)

	target := &document.Record{ID: "inv-1", Kind: document.KindInvoice}

	po := payload("po-1", "purchase-order")
	broken := payload("bad-1", "memo")
	self := payload("inv-1", "invoice")

	repo.EXPECT().
		FindCandidates(gomock.Any(), target, 50).
		Return([]*document.Payload{&po, &broken, &self}, nil)

	svc := document.NewService(repo)

	got, err := svc.Candidates(context.Background(), target, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "po-1", got[0].ID)
}

func TestService_CandidatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := document.NewMockRepository(ctrl)

	repo.EXPECT().FindCandidates(gomock.Any(), gomock.Any(), 0).Return(nil, errors.New("db error"))

	svc := document.NewService(repo)

	_, err := svc.Candidates(context.Background(), &document.Record{ID: "inv-1"}, 0)
	assert.Error(t, err)
}

func TestService_ImportBatch(t *testing.T) {
	type testCase struct {
		name          string
		payloads      []document.Payload
		overwrite     bool
		setupMock     func(m *document.MockRepository, itx *document.MockImportTx)
		wantImported  []string
		wantConflicts []string
		wantInvalid   int
		wantErr       bool
	}

	batch := []document.Payload{
		payload("inv-1", "invoice"),
		payload("po-1", "purchase-order"),
		payload("bad", "memo"),
		payload("inv-1", "invoice"),
	}

	tests := []testCase{
		{
			name:     "AllNew",
			payloads: batch,
			setupMock: func(m *document.MockRepository, itx *document.MockImportTx) {
				m.EXPECT().BeginImport(gomock.Any(), []string{"inv-1", "po-1"}).Return(itx, nil)
				itx.EXPECT().FindExisting(gomock.Any(), []string{"inv-1", "po-1"}).Return(nil, nil)
				itx.EXPECT().
					SaveDocuments(gomock.Any(), gomock.Len(2)).
					Return(nil)
				itx.EXPECT().Commit().Return(nil)
				itx.EXPECT().Rollback().Return(nil)
			},
			wantImported: []string{"inv-1", "po-1"},
			wantInvalid:  2,
		},
		{
			name:     "ConflictsWithoutOverwrite",
			payloads: batch,
			setupMock: func(m *document.MockRepository, itx *document.MockImportTx) {
				m.EXPECT().BeginImport(gomock.Any(), gomock.Any()).Return(itx, nil)
				itx.EXPECT().FindExisting(gomock.Any(), gomock.Any()).Return([]string{"po-1", "inv-1"}, nil)
				itx.EXPECT().Rollback().Return(nil)
			},
			wantConflicts: []string{"inv-1", "po-1"},
			wantInvalid:   2,
		},
		{
			name:      "Overwrite",
			payloads:  batch[:2],
			overwrite: true,
			setupMock: func(m *document.MockRepository, itx *document.MockImportTx) {
				m.EXPECT().BeginImport(gomock.Any(), gomock.Any()).Return(itx, nil)
				itx.EXPECT().FindExisting(gomock.Any(), gomock.Any()).Return([]string{"po-1"}, nil)
				itx.EXPECT().SaveDocuments(gomock.Any(), gomock.Len(2)).Return(nil)
				itx.EXPECT().Commit().Return(nil)
				itx.EXPECT().Rollback().Return(nil)
			},
			wantImported: []string{"inv-1", "po-1"},
		},
		{
			name:        "NothingValid",
			payloads:    []document.Payload{payload("bad", "memo")},
			wantInvalid: 1,
		},
		{
			name:     "SaveError",
			payloads: batch[:1],
			setupMock: func(m *document.MockRepository, itx *document.MockImportTx) {
				m.EXPECT().BeginImport(gomock.Any(), gomock.Any()).Return(itx, nil)
				itx.EXPECT().FindExisting(gomock.Any(), gomock.Any()).Return(nil, nil)
				itx.EXPECT().SaveDocuments(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
				itx.EXPECT().Rollback().Return(nil)
			},
			wantErr: true,
		},
		{
			name:     "BeginError",
			payloads: batch[:1],
			setupMock: func(m *document.MockRepository, _ *document.MockImportTx) {
				m.EXPECT().BeginImport(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			repo := document.NewMockRepository(ctrl)
			itx := document.NewMockImportTx(ctrl)

			if tt.setupMock != nil {
				tt.setupMock(repo, itx)
			}

			svc := document.NewService(repo)
			got, err := svc.ImportBatch(context.Background(), tt.payloads, tt.overwrite)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantImported, got.Imported)
			assert.Equal(t, tt.wantConflicts, got.Conflicts)
			assert.Len(t, got.Invalid, tt.wantInvalid)
		})
	}
}
