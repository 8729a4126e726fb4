package report_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/docmatch/internal/report"
)

func TestService_Save(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(repo *report.MockRepository)
		wantErr   bool
	}{
		{
			name: "success",
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().SaveReport(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "repository error",
			setupMock: func(repo *report.MockRepository) {
				repo.EXPECT().SaveReport(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := report.NewMockRepository(ctrl)
			tt.setupMock(repo)

			err := report.NewService(repo).Save(context.Background(), &report.Report{ID: "rep-1"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := report.NewMockRepository(ctrl)

	repo.EXPECT().GetReport(gomock.Any(), "rep-1").Return(&report.Report{ID: "rep-1"}, nil)
	repo.EXPECT().GetReport(gomock.Any(), "rep-2").Return(nil, report.ErrNotFound)

	svc := report.NewService(repo)

	r, err := svc.Get(context.Background(), "rep-1")
	require.NoError(t, err)
	assert.Equal(t, "rep-1", r.ID)

	_, err = svc.Get(context.Background(), "rep-2")
	assert.ErrorIs(t, err, report.ErrNotFound)
}

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := report.NewMockRepository(ctrl)

	filter := report.ListFilter{Label: new(report.LabelMatched), Limit: 10}
	repo.EXPECT().ListReports(gomock.Any(), filter).Return([]*report.Report{{ID: "rep-1"}}, nil)

	got, err := report.NewService(repo).List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
