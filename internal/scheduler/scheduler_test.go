package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wardstock/stocktake/internal/config"
	"github.com/wardstock/stocktake/internal/domain/models"
	"github.com/wardstock/stocktake/internal/service/counting"
)

type fakeCountingService struct {
	progress map[string]models.DeviceProgress
	errs     map[string]error
}

var _ counting.CountingService = (*fakeCountingService)(nil)

func (f *fakeCountingService) View(context.Context, string, string, models.ViewFilter) (*models.CountView, error) {
	return &models.CountView{}, nil
}

func (f *fakeCountingService) SaveCount(context.Context, string, models.SaveCountRequest) error {
	return nil
}

func (f *fakeCountingService) AddItem(context.Context, string, models.AddItemRequest) error {
	return nil
}

func (f *fakeCountingService) Export(context.Context, string) ([]byte, string, error) {
	return nil, "", nil
}

func (f *fakeCountingService) Progress(_ context.Context, device string) (models.DeviceProgress, error) {
	if err := f.errs[device]; err != nil {
		return models.DeviceProgress{}, err
	}
	return f.progress[device], nil
}

type fakeNotifier struct {
	posts []string
	err   error
}

func (f *fakeNotifier) PostSummary(_ context.Context, text string) error {
	f.posts = append(f.posts, text)
	return f.err
}

func reportConfig(devices ...string) config.Config {
	return config.Config{Report: config.ReportConfig{
		WebhookURL:   "https://hooks.example.com/T123",
		CronSchedule: "0 20 * * *",
		Devices:      devices,
		Timezone:     "UTC",
	}}
}

func TestFormatProgressLine(t *testing.T) {
	line := formatProgressLine(models.DeviceProgress{
		Device:   "21",
		Table:    "Count-21-cart",
		Progress: models.Progress{Total: 10, Done: 3, Percent: 30},
	})
	assert.Equal(t, "Cart 21 (Count-21-cart): 3/10 counted (30.0%)", line)

	line = formatProgressLine(models.DeviceProgress{
		Device:   "B-area",
		Table:    "Count-B-area",
		Progress: models.Progress{Total: 3, Done: 1, Percent: 33.3},
	})
	assert.Equal(t, "Cart B-area (Count-B-area): 1/3 counted (33.3%)", line)
}

func TestBuildSummaryJoinsDevices(t *testing.T) {
	svc := &fakeCountingService{progress: map[string]models.DeviceProgress{
		"21": {Device: "21", Table: "Count-21-cart", Progress: models.Progress{Total: 10, Done: 3, Percent: 30}},
		"22": {Device: "22", Table: "Count-22-cart", Progress: models.Progress{Total: 4, Done: 4, Percent: 100}},
	}}
	s := NewScheduler(reportConfig("21", "22"), svc, &fakeNotifier{}, zap.NewNop())

	summary := s.buildSummary(context.Background())
	assert.Equal(t,
		"Cart 21 (Count-21-cart): 3/10 counted (30.0%)\n"+
			"Cart 22 (Count-22-cart): 4/4 counted (100.0%)",
		summary)
}

func TestBuildSummarySkipsFailingDevice(t *testing.T) {
	svc := &fakeCountingService{
		progress: map[string]models.DeviceProgress{
			"21": {Device: "21", Table: "Count-21-cart", Progress: models.Progress{Total: 2, Done: 1, Percent: 50}},
		},
		errs: map[string]error{"22": errors.New("sheet gone")},
	}
	s := NewScheduler(reportConfig("21", "22"), svc, &fakeNotifier{}, zap.NewNop())

	summary := s.buildSummary(context.Background())
	assert.Equal(t, "Cart 21 (Count-21-cart): 1/2 counted (50.0%)", summary)
}

func TestSendProgressReportPostsSummary(t *testing.T) {
	svc := &fakeCountingService{progress: map[string]models.DeviceProgress{
		"21": {Device: "21", Table: "Count-21-cart", Progress: models.Progress{Total: 10, Done: 3, Percent: 30}},
	}}
	notifier := &fakeNotifier{}
	s := NewScheduler(reportConfig("21"), svc, notifier, zap.NewNop())

	s.sendProgressReport()

	require.Len(t, notifier.posts, 1)
	assert.Equal(t, "Cart 21 (Count-21-cart): 3/10 counted (30.0%)", notifier.posts[0])
}

func TestSendProgressReportSkipsEmptySummary(t *testing.T) {
	notifier := &fakeNotifier{}
	s := NewScheduler(reportConfig(), &fakeCountingService{}, notifier, zap.NewNop())

	s.sendProgressReport()
	assert.Empty(t, notifier.posts)
}

func TestNewSchedulerUnknownTimezoneFallsBack(t *testing.T) {
	cfg := reportConfig("21")
	cfg.Report.Timezone = "Nowhere/Nonexistent"

	s := NewScheduler(cfg, &fakeCountingService{}, &fakeNotifier{}, zap.NewNop())
	require.NotNil(t, s)
	require.NotNil(t, s.cron)
}
