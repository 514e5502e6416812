package compliance_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/foodhouse/menucheck_backend/compliance"
	"github.com/foodhouse/menucheck_backend/config"
	"github.com/foodhouse/menucheck_backend/models"
	"github.com/foodhouse/menucheck_backend/utils"
)

func TestComplianceRunEndToEnd(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "menucheck_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetRunActorInContext(ctx, "IntegrationTest")

	site, err := models.CreateSite(ctx, &models.NewSite{Name: "Herzliya Cafeteria"})
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}

	fruitRule, err := models.CreateComplianceRule(ctx, &models.NewComplianceRule{
		Name:          "Fresh Fruit",
		RuleType:      models.RuleTypeMinFrequency,
		MatchCriteria: models.MatchCriteria{Keywords: []string{"פירות"}},
		ExpectedCount: 12,
		Period:        models.RulePeriodPerMonth,
		Priority:      1,
	})
	if err != nil {
		t.Fatalf("CreateComplianceRule fruit: %v", err)
	}
	if _, err := models.CreateComplianceRule(ctx, &models.NewComplianceRule{
		Name:          "Fried Food Limit",
		RuleType:      models.RuleTypeMaxFrequency,
		MatchCriteria: models.MatchCriteria{Keywords: []string{"שניצל"}},
		ExpectedCount: 1,
		Period:        models.RulePeriodPerMonth,
		Priority:      2,
	}); err != nil {
		t.Fatalf("CreateComplianceRule fried: %v", err)
	}

	// March 2026, Sunday-Thursday. Fruit on 10 days (short of 12), schnitzel
	// on 3 days (over the max of 1).
	fruitDays := map[int]bool{1: true, 2: true, 3: true, 8: true, 9: true, 10: true, 15: true, 16: true, 17: true, 22: true}
	schnitzelDays := map[int]bool{4: true, 11: true, 18: true}
	var days []*models.MenuDay
	for d := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC); d.Month() == time.March; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Friday || d.Weekday() == time.Saturday {
			continue
		}
		items := models.MenuItems{"עיקרית": {"עוף בגריל"}}
		if fruitDays[d.Day()] {
			items["קינוח"] = []string{"סלט פירות"}
		}
		if schnitzelDays[d.Day()] {
			items["עיקרית"] = append(items["עיקרית"], "שניצל עוף")
		}
		days = append(days, &models.MenuDay{
			SiteId:    site.ID,
			Date:      d,
			DayOfWeek: d.Weekday().String(),
			Items:     items,
		})
	}
	if err := models.ReplaceMenuDays(ctx, site.ID, 3, 2026, days); err != nil {
		t.Fatalf("ReplaceMenuDays: %v", err)
	}

	orchestrator := compliance.NewOrchestrator()

	check, err := orchestrator.RunCheck(ctx, site.ID, 3, 2026, nil)
	if err != nil {
		t.Fatalf("RunCheck: %v", err)
	}
	if check.DishesUnder != 1 || check.DishesAbove != 1 {
		t.Fatalf("counters = above %d under %d, want 1/1", check.DishesAbove, check.DishesUnder)
	}
	if check.CriticalFindings != 1 {
		// Only the priority-1 fruit rule is critical; the fried-food rule is
		// priority 2.
		t.Fatalf("critical_findings = %d, want 1", check.CriticalFindings)
	}

	results, err := models.GetCheckResults(ctx, check.ID)
	if err != nil {
		t.Fatalf("GetCheckResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	counts := map[models.Comparison]int{}
	for _, result := range results {
		counts[result.Evidence.Comparison]++
	}
	if counts[models.ComparisonUnder] != check.DishesUnder ||
		counts[models.ComparisonAbove] != check.DishesAbove ||
		counts[models.ComparisonEven] != check.DishesEven {
		t.Fatalf("stored counters diverge from result comparisons: %v vs %+v", counts, check)
	}

	var fruitResult *models.CheckResult
	for _, result := range results {
		if result.RuleId == fruitRule.ID {
			fruitResult = result
		}
	}
	if fruitResult == nil {
		t.Fatalf("no result for fruit rule")
	}
	if fruitResult.Evidence.ActualCount != 10 || fruitResult.Evidence.Comparison != models.ComparisonUnder {
		t.Fatalf("fruit evidence = %+v", fruitResult.Evidence)
	}
	if len(fruitResult.Evidence.MissingOnDays) != 2 {
		t.Fatalf("fruit missing days = %v, want 2 entries", fruitResult.Evidence.MissingOnDays)
	}

	firstEvidence, err := json.Marshal(fruitResult.Evidence)
	if err != nil {
		t.Fatalf("marshal evidence: %v", err)
	}

	// Re-run with unchanged inputs: same comparisons, byte-identical evidence,
	// results fully replaced (no stale mix).
	if _, err := orchestrator.RerunCheck(ctx, check.ID); err != nil {
		t.Fatalf("RerunCheck: %v", err)
	}
	rerunResults, err := models.GetCheckResults(ctx, check.ID)
	if err != nil {
		t.Fatalf("GetCheckResults after rerun: %v", err)
	}
	if len(rerunResults) != 2 {
		t.Fatalf("rerun left %d results, want 2", len(rerunResults))
	}
	for _, result := range rerunResults {
		if result.RuleId != fruitRule.ID {
			continue
		}
		rerunEvidence, err := json.Marshal(result.Evidence)
		if err != nil {
			t.Fatalf("marshal rerun evidence: %v", err)
		}
		if string(rerunEvidence) != string(firstEvidence) {
			t.Fatalf("evidence not idempotent:\n%s\n%s", firstEvidence, rerunEvidence)
		}
	}

	// A held period lock rejects a new run with a conflict.
	locker := config.GetRedisLock()
	held, err := locker.Obtain(ctx, fmt.Sprintf("menucheck:%d:%d:%d", site.ID, 3, 2026), time.Minute, nil)
	if err != nil {
		t.Fatalf("obtain lock: %v", err)
	}
	if _, err := orchestrator.RunCheck(ctx, site.ID, 3, 2026, nil); err != utils.ErrorCheckInProgress {
		t.Fatalf("concurrent run err = %v, want ErrorCheckInProgress", err)
	}
	_ = held.Release(ctx)

	// A month with no menu data is a not-found, not an empty run.
	if _, err := orchestrator.RunCheck(ctx, site.ID, 4, 2026, nil); err != utils.ErrorNoMenuData {
		t.Fatalf("empty month err = %v, want ErrorNoMenuData", err)
	}

	// The run itself registered every served dish in the catalog; they show
	// up unassigned until someone categorizes them.
	unassigned, err := models.ListDishCatalog(ctx, models.DishCatalogFilter{Unassigned: true})
	if err != nil {
		t.Fatalf("ListDishCatalog: %v", err)
	}
	if len(unassigned) == 0 {
		t.Fatalf("run did not register served dishes in the catalog")
	}
	// Even on the period's first run the entries record which check found them.
	for _, entry := range unassigned {
		if entry.SourceCheckId == nil || *entry.SourceCheckId != check.ID {
			t.Fatalf("dish %q source_check_id = %v, want %d", entry.DishName, entry.SourceCheckId, check.ID)
		}
	}

	// An explicit extraction afterwards is a no-op.
	extraction, err := models.ExtractDishesFromCheck(ctx, check.ID)
	if err != nil {
		t.Fatalf("ExtractDishesFromCheck: %v", err)
	}
	if extraction.NewDishesAdded != 0 {
		t.Fatalf("extraction added %d dishes after the run already registered them", extraction.NewDishesAdded)
	}
	if extraction.AlreadyExisted != extraction.TotalDishesInMenu {
		t.Fatalf("extraction existing = %d, want %d", extraction.AlreadyExisted, extraction.TotalDishesInMenu)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("menucheck-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("menucheck-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=menucheck_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
