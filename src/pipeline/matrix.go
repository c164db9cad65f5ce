package pipeline

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sofmeright/forgeline/src/platform"
	"github.com/sofmeright/forgeline/src/source"
	"github.com/sofmeright/forgeline/src/toolchain"
	"github.com/sofmeright/forgeline/src/workspace"
)

// PlatformRequest is one platform's worth of a matrix build.
type PlatformRequest struct {
	Toolchain *toolchain.Spec
	Inputs    platform.BuildInputs
}

// PlatformResult pairs a request with its outcome.
type PlatformResult struct {
	Request PlatformRequest
	Deps    *DependencyArtifacts
	Build   *WorkspaceArtifacts
	Err     error
}

// BuildMatrix runs the full two-stage pipeline for several platforms.
// Platforms are independent and run in parallel under a weighted semaphore;
// within each platform the dependency stage strictly precedes the workspace
// stage. One platform failing does not stop the others.
func (p *Pipeline) BuildMatrix(ctx context.Context, tree *source.Tree, ws *workspace.Workspace, reqs []PlatformRequest) []PlatformResult {
	results := make([]PlatformResult, len(reqs))
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))

	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req PlatformRequest) {
			defer wg.Done()
			results[i].Request = req

			if err := sem.Acquire(ctx, 1); err != nil {
				results[i].Err = err
				return
			}
			defer sem.Release(1)

			deps, err := p.BuildDependenciesOnly(ctx, tree, ws, req.Toolchain, req.Inputs)
			if err != nil {
				results[i].Err = err
				return
			}
			results[i].Deps = deps

			build, err := p.BuildWorkspace(ctx, tree, ws, req.Toolchain, req.Inputs, deps)
			if err != nil {
				results[i].Err = err
				return
			}
			results[i].Build = build
		}(i, req)
	}
	wg.Wait()

	return results
}
