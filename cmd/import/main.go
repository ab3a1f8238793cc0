package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"revenda-crm/internal/config"
	"revenda-crm/internal/infra/anticaptcha"
	"revenda-crm/internal/infra/sqlite3"
	"revenda-crm/internal/panels"
	"revenda-crm/internal/proxy"
	"revenda-crm/internal/storage"
	"revenda-crm/internal/stories/credentials"
	"revenda-crm/internal/stories/packages"
)

// Operator tool: fetch a panel's package catalog and reconcile it into the
// local plan table. Solver key and proxy pool come from the environment,
// same as the service.
func main() {
	panelFlag := flag.String("panel", "", "panel to fetch from (sigma, koffice, uniplay, unitv, rush, club, cloudnation, painelfoda)")
	domainFlag := flag.String("domain", "", "panel deployment domain, e.g. https://painel.example.com")
	userFlag := flag.Int64("user", 0, "reseller user id owning the panel credentials")
	dbFlag := flag.String("db", "", "path to SQLite database (overrides DB_PATH)")
	applyFlag := flag.Bool("apply", false, "create a local plan for every fetched package (default-create)")
	dryRunFlag := flag.Bool("dry-run", false, "classify only, write nothing")
	flag.Parse()

	if *panelFlag == "" || *domainFlag == "" || *userFlag == 0 {
		log.Fatal("required: -panel <name> -domain <url> -user <id>")
	}

	ctx := context.Background()

	_ = godotenv.Load()
	var cfg config.Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("env processing: %v", err)
	}
	if *dbFlag != "" {
		cfg.DB.Path = *dbFlag
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Logger.Level == "debug" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	db, err := sqlite3.New(ctx, sqlite3.WithDSN(cfg.DB.Path))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	storageImpl := storage.New(db.DB)
	credsService := credentials.NewService(storageImpl)
	packagesService := packages.NewService(storageImpl, storageImpl, logger)

	panel := panels.Panel(*panelFlag)
	creds, err := credsService.Get(ctx, *userFlag, panel, *domainFlag)
	if err != nil {
		log.Fatalf("resolve credentials: %v", err)
	}

	var rotator *proxy.Rotator
	if len(cfg.Proxy.Endpoints) > 0 {
		rotator, err = proxy.NewRotator(cfg.Proxy.Endpoints)
		if err != nil {
			log.Fatalf("proxy pool: %v", err)
		}
	}
	solver := anticaptcha.NewClient(
		cfg.AntiCaptcha.APIURL,
		cfg.AntiCaptcha.ClientKey,
		cfg.AntiCaptcha.PollInterval,
		cfg.AntiCaptcha.MaxPolls,
		logger,
	)

	factory := panels.NewFactory(solver, rotator, cfg.Panels, logger)
	adapter, err := factory.Adapter(panels.AdapterSpec{
		Panel:       panel,
		Domain:      *domainFlag,
		Credentials: *creds,
	})
	if err != nil {
		log.Fatalf("build adapter: %v", err)
	}

	session, err := adapter.Authenticate(ctx)
	if err != nil {
		log.Fatalf("authenticate: %v", err)
	}

	pkgs, err := adapter.ListPackages(ctx, session)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}

	fmt.Printf("Fetched %d packages from %s (%s)\n\n", len(pkgs), panel, *domainFlag)

	if *dryRunFlag {
		printDryRun(ctx, storageImpl, panel, *domainFlag, pkgs)
		fmt.Println("\n(DRY RUN - nothing was written to database)")
		return
	}

	if err := packagesService.ImportPackages(ctx, pkgs); err != nil {
		log.Fatalf("import packages: %v", err)
	}

	codes := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		codes = append(codes, pkg.Code)
	}

	report, err := packagesService.CheckConflicts(ctx, panel, *domainFlag, codes)
	if err != nil {
		log.Fatalf("check conflicts: %v", err)
	}

	for _, conflict := range report.Conflicts {
		fmt.Printf("CONFLICT  %-12s %-30s -> plan #%d %q\n",
			conflict.Package.Code, conflict.Package.Name, conflict.Plan.ID, conflict.Plan.Name)
	}
	for _, pkg := range report.New {
		fmt.Printf("NEW       %-12s %-30s %dm x%d\n",
			pkg.Code, pkg.Name, pkg.DurationMonths, pkg.Screens)
	}

	if !*applyFlag {
		fmt.Println("\nRe-run with -apply to create plans (conflicting codes will be duplicated; resolve them in the app UI instead)")
		return
	}

	summary, err := packagesService.Apply(ctx, panel, *domainFlag, codes, nil)
	if err != nil {
		log.Fatalf("apply: %v", err)
	}

	fmt.Printf("\n=== APPLIED ===\nCreated: %d\nUpdated: %d\nErrors: %d\n",
		summary.Created, summary.Updated, len(summary.Errors))
	for _, itemErr := range summary.Errors {
		fmt.Printf("ERROR     %-12s [%s] %s\n", itemErr.PackageCode, itemErr.Code, itemErr.Message)
	}
}

func printDryRun(ctx context.Context, catalog packages.PlanCatalog, panel panels.Panel, domain string, pkgs []panels.Package) {
	for _, pkg := range pkgs {
		plan, err := catalog.FindPlanByPanelCode(ctx, panel, domain, pkg.Code)
		if err != nil {
			fmt.Printf("ERROR     %-12s %v\n", pkg.Code, err)
			continue
		}
		if plan != nil {
			fmt.Printf("CONFLICT  %-12s %-30s -> plan #%d %q\n", pkg.Code, pkg.Name, plan.ID, plan.Name)
		} else {
			fmt.Printf("NEW       %-12s %-30s %dm x%d\n", pkg.Code, pkg.Name, pkg.DurationMonths, pkg.Screens)
		}
	}
}
