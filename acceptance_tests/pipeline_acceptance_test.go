package acceptance_tests

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ai-health-advisor/internal/advisor"
	"ai-health-advisor/internal/app"
	"ai-health-advisor/internal/config"
	"ai-health-advisor/internal/database"
	"ai-health-advisor/internal/extraction"
	"ai-health-advisor/internal/health"
	"ai-health-advisor/internal/history"
	"ai-health-advisor/internal/llm"
	"ai-health-advisor/internal/logger"
	"ai-health-advisor/internal/metrics"
	"ai-health-advisor/internal/shared"
	"ai-health-advisor/internal/storage"
)

const labReportHTML = `<html>
<head><style>body { font-family: sans-serif; }</style></head>
<body>
<nav>Portal menu</nav>
<h1>Lipid Panel</h1>
<p>Fasting sample collected 08:00.</p>
<table>
<tr><th>Test</th><th>Result</th><th>Range</th></tr>
<tr><td>LDL Cholesterol</td><td>162 mg/dL</td><td>&lt;130</td></tr>
<tr><td>HDL Cholesterol</td><td>41 mg/dL</td><td>&gt;40</td></tr>
</table>
<footer>Copyright Lab Portal</footer>
</body>
</html>`

const nutritionResponse = `**BMI**: 27.8
**Weight Status**: Overweight
**Daily Calorie Target**: 2,200 kcal
**Macro Breakdown**: Protein: 140g (25%), Carbohydrates: 275g (50%), Fats: 61g (25%)
**Nutrition Guidance**: Limit saturated fat and add soluble fiber to bring LDL down.
**3-Day Meal Plan**:
Day 1: Oats with berries, lentil salad, grilled salmon
Day 2: Greek yogurt, chickpea bowl, turkey stir fry
Day 3: Egg whites, quinoa salad, baked cod
**Grocery List**:
- Oats
- Salmon
**Needs Doctor**: Yes`

const workoutResponse = `**Calorie Burn Target**: 450 kcal/day

**Plan Overview**:
Brisk cardio and light strength work three days a week.

**Schedule**:
Day 1: Cardio
- Duration: 40 minutes
- Exercises:
  1. Brisk walk
- Estimated Calorie Burn: 350 kcal

Day 2: Full Body Strength
- Duration: 35 minutes
- Estimated Calorie Burn: 300 kcal

**Explanation**:
Aerobic work improves the lipid profile.`

// scriptedModel answers with canned text chosen by system message and
// records every prompt it receives.
type scriptedModel struct {
	mu      sync.Mutex
	prompts map[string][]string
}

func (m *scriptedModel) GenerateContent(ctx context.Context, req llm.ContentRequest) (llm.ContentResponse, error) {
	system, user := req.Messages[0].Content, req.Messages[len(req.Messages)-1].Content

	var kind, content string
	switch {
	case strings.Contains(system, "fitness advisor"):
		kind, content = "workout", workoutResponse
	case strings.Contains(user, "3-Day Meal Plan"):
		kind, content = "nutrition", nutritionResponse
	default:
		kind, content = "chat", "Swap butter for olive oil and keep walking daily."
	}

	m.mu.Lock()
	if m.prompts == nil {
		m.prompts = map[string][]string{}
	}
	m.prompts[kind] = append(m.prompts[kind], user)
	m.mu.Unlock()

	return llm.ContentResponse{
		Content: content,
		Usage:   shared.TokenUsage{PromptTokens: 300, CompletionTokens: 200, TotalTokens: 500, Model: "scripted"},
	}, nil
}

func (m *scriptedModel) last(kind string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.prompts[kind]
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// keywordEmbedder maps text onto three topic axes: lipids, exercise, food.
type keywordEmbedder struct{}

var topics = [][]string{
	{"ldl", "cholesterol", "lipid"},
	{"workout", "cardio", "strength"},
	{"meal", "oats", "calorie"},
}

func (keywordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	v := make([]float32, len(topics))
	for i, words := range topics {
		for _, w := range words {
			v[i] += float32(strings.Count(lower, w))
		}
	}
	return v, nil
}

// fixedRecognizer stands in for the optical model.
type fixedRecognizer struct {
	text  string
	calls int
}

func (r *fixedRecognizer) RecognizeText(ctx context.Context, img image.Image) (string, error) {
	r.calls++
	return r.text, nil
}

type pipeline struct {
	app      *app.App
	model    *scriptedModel
	ocr      *fixedRecognizer
	profiles *health.ProfileRepository
	hist     *history.Store
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	log := logger.NewNop()
	dir := t.TempDir()

	db, err := database.NewDB(filepath.Join(dir, "health.db"), log)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reports, err := storage.NewReportStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("Failed to create report store: %v", err)
	}

	ocr := &fixedRecognizer{text: "Chest X-ray\nFinding | No acute abnormality"}
	engine := extraction.NewEngine(nil, nil, ocr, extraction.Options{PageDir: dir}, log)

	hist := history.NewStore(db.SQL, keywordEmbedder{}, history.Options{Ordering: history.OrderChronological}, log)
	profiles := health.NewProfileRepository(db.SQL)
	usage := metrics.NewStore(db.SQL)

	model := &scriptedModel{}
	adv := advisor.New(model, hist, log, advisor.Options{}).WithMetrics(usage)

	cfg := &config.Config{DatabasePath: filepath.Join(dir, "health.db"), UploadDir: filepath.Join(dir, "uploads")}
	a := app.NewApp(cfg, engine, reports, hist, profiles, adv, usage, log)
	return &pipeline{app: a, model: model, ocr: ocr, profiles: profiles, hist: hist}
}

func writeScan(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for x := 0; x < 32; x++ {
		img.Set(x, x, color.White)
	}
	path := filepath.Join(t.TempDir(), "xray.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create scan: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode scan: %v", err)
	}
	return path
}

func TestAdvisorPipeline(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	const user = "patient-1"

	profile := health.Profile{
		Name:          "Rui",
		Age:           46,
		Gender:        "male",
		HeightM:       1.78,
		WeightKg:      88,
		ActivityLevel: "sedentary",
	}
	if err := p.app.SaveProfile(ctx, user, profile, "lose 6 kg in 3 months"); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	// 1. Lab report exported as a web page
	res, err := p.app.IngestReport(ctx, user, "lipids.html", strings.NewReader(labReportHTML), history.ReportBlood)
	if err != nil {
		t.Fatalf("IngestReport(html) failed: %v", err)
	}
	if !res.Stored || !res.ProfileUpdated {
		t.Errorf("Expected stored report and updated profile, got %+v", res)
	}
	if !strings.Contains(res.Extraction.Text, "Lipid Panel") || strings.Contains(res.Extraction.Text, "Portal menu") {
		t.Errorf("Unexpected html text %q", res.Extraction.Text)
	}
	if len(res.Extraction.Tables) != 1 || len(res.Extraction.Tables[0].Rows) != 3 {
		t.Fatalf("Expected one 3-row table, got %+v", res.Extraction.Tables)
	}
	if got := res.Extraction.Tables[0].Rows[1][0]; got != "LDL Cholesterol" {
		t.Errorf("Expected LDL row, got %q", got)
	}

	// 2. Imaging scan goes through the optical model
	scan, err := os.Open(writeScan(t))
	if err != nil {
		t.Fatalf("Failed to open scan: %v", err)
	}
	defer scan.Close()
	res, err = p.app.IngestReport(ctx, user, "xray.png", scan, history.ReportScan)
	if err != nil {
		t.Fatalf("IngestReport(png) failed: %v", err)
	}
	if p.ocr.calls != 1 {
		t.Errorf("Expected one recognizer call, got %d", p.ocr.calls)
	}
	if res.ProfileUpdated {
		t.Error("Scan must not replace the blood report")
	}
	if !strings.Contains(res.Extraction.Text, "No acute abnormality") {
		t.Errorf("Unexpected scan text %q", res.Extraction.Text)
	}

	stored, err := p.profiles.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get profile failed: %v", err)
	}
	if !strings.Contains(stored.Profile.BloodReport, "LDL Cholesterol | 162 mg/dL") {
		t.Errorf("Expected blood report in profile, got %q", stored.Profile.BloodReport)
	}

	// 3. Nutrition plan sees the blood report and is parsed
	rec, err := p.app.Nutrition(ctx, user, true)
	if err != nil {
		t.Fatalf("Nutrition failed: %v", err)
	}
	if prompt := p.model.last("nutrition"); !strings.Contains(prompt, "LDL Cholesterol") {
		t.Errorf("Nutrition prompt is missing the blood report:\n%s", prompt)
	}
	if rec.BMI != 27.8 || rec.WeightStatus != health.WeightOverweight {
		t.Errorf("Unexpected BMI/status: %v %q", rec.BMI, rec.WeightStatus)
	}
	if rec.CalorieTargetText() != "2200" {
		t.Errorf("Expected calorie target 2200, got %s", rec.CalorieTargetText())
	}
	if !rec.MacroBreakdown.Parsed || rec.MacroBreakdown.Protein.Grams != 140 {
		t.Errorf("Unexpected macros %+v", rec.MacroBreakdown)
	}
	if !rec.NeedsDoctor {
		t.Error("Expected doctor flag")
	}

	// 4. Workout plan built on top of the nutrition plan
	plan, err := p.app.Workout(ctx, user, &rec, true)
	if err != nil {
		t.Fatalf("Workout failed: %v", err)
	}
	if plan.CalorieBurnTargetText() != "450" {
		t.Errorf("Expected burn target 450, got %s", plan.CalorieBurnTargetText())
	}
	if len(plan.Schedule) != 2 || plan.Schedule[1].Focus != "Full Body Strength" {
		t.Errorf("Unexpected schedule %+v", plan.Schedule)
	}
	if p.model.last("workout") == "" {
		t.Error("Expected a workout prompt")
	}

	// 5. Free-form chat
	reply, err := p.app.Respond(ctx, user, "Is olive oil better than butter for me?")
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if !strings.Contains(reply.Text, "olive oil") || reply.Action != "" {
		t.Errorf("Unexpected chat reply %+v", reply)
	}

	greeting, _ := p.app.Respond(ctx, user, "hello")
	if !strings.Contains(greeting.Text, "Rui") {
		t.Errorf("Expected greeting by name, got %q", greeting.Text)
	}

	// 6. History holds reports and plan summaries; search finds the lipids
	records := p.app.History(ctx, user, "", 20)
	types := map[history.ReportType]int{}
	for _, r := range records {
		types[r.ReportType]++
	}
	for _, want := range []history.ReportType{
		history.ReportBlood, history.ReportScan, history.ReportHealthRecommendation,
		history.ReportMealPlan, history.ReportWorkoutPlan,
	} {
		if types[want] != 1 {
			t.Errorf("Expected one %s record, got %d (%v)", want, types[want], types)
		}
	}
	for i := 1; i < len(records); i++ {
		if records[i].Timestamp.After(records[i-1].Timestamp) {
			t.Errorf("History is not newest first at %d", i)
		}
	}

	hits := p.app.History(ctx, user, "cholesterol", 1)
	if len(hits) != 1 || hits[0].ReportType != history.ReportBlood {
		t.Errorf("Expected blood report as top hit, got %+v", hits)
	}

	// 7. Every model call was metered
	usage, err := p.app.Usage(ctx, 1)
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	var execs, fallbacks, prompt int
	for _, d := range usage {
		execs += d.TotalExecution
		fallbacks += d.Fallbacks
		prompt += d.TotalPrompt
	}
	if execs != 3 || fallbacks != 0 || prompt != 900 {
		t.Errorf("Unexpected usage %+v", usage)
	}
}

func TestPipelineWithoutModel(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()
	dir := t.TempDir()

	db, err := database.NewDB(filepath.Join(dir, "health.db"), log)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	hist := history.NewStore(db.SQL, nil, history.Options{}, log)
	adv := advisor.New(nil, hist, log, advisor.Options{})
	a := app.NewApp(nil, extraction.NewEngine(nil, nil, nil, extraction.Options{}, log), nil, hist,
		health.NewProfileRepository(db.SQL), adv, metrics.NewStore(db.SQL), log)

	rec, err := a.Nutrition(ctx, "u1", false)
	if err != nil {
		t.Fatalf("Nutrition failed: %v", err)
	}
	if rec.CalorieTarget != nil || rec.WeightStatus != health.WeightUnknown {
		t.Errorf("Expected fallback plan, got %+v", rec)
	}

	plan, err := a.Workout(ctx, "u1", nil, false)
	if err != nil {
		t.Fatalf("Workout failed: %v", err)
	}
	if plan.Overview != "No workout plan provided" {
		t.Errorf("Expected fallback workout, got %q", plan.Overview)
	}
}
