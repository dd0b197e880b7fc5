// Package treadwell is an in-process task orchestrator.
//
// Tasks are registered on a Runner by name, each with optional dependencies
// and a body. Dependencies are a single Name, an ordered Series or an
// unordered Parallel group, and groups nest. Running a root task executes
// its dependencies first, series members one after another and parallel
// members concurrently, threading one Args result container through the
// whole run. Parallel members work on independent clones that are merged
// once every member has finished.
//
//	runner := treadwell.Create(treadwell.WithLogLevel("info"))
//	runner.
//		Task("lint", func(args *treadwell.Args) any { return "clean" }).
//		Task("test", func(args *treadwell.Args) any { return 42 }).
//		Task("build", treadwell.Concurrent("lint", "test"), func(args *treadwell.Args) any {
//			return args.Get("test", 0)
//		})
//	outcome, err := runner.Run(ctx, "build")
//	if err != nil {
//		return err
//	}
//	result, err := outcome.Wait(ctx)
//
// Each task runs at most once per run. A Runner runs once; later Run calls
// return the first Outcome.
package treadwell
