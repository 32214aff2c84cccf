package core

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"debstage/internal/adapters"
	"debstage/internal/ports"
	"debstage/internal/types"
)

func selectorIndex() ports.IndexPort {
	return adapters.NewIndexSession("/tmp/root", types.IndexSnapshot{Packages: map[string][]types.AptPackage{
		"curl": {{Name: "curl", Version: "7.38.0-4", Depends: []string{
			"libc6 (>= 2.17)", "libcurl3 (= 7.38.0-4)", "zlib1g",
		}}},
		"libcurl3": {{Name: "libcurl3", Version: "7.38.0-4", Depends: []string{"libc6", "libidn11"}}},
		"libc6":    {{Name: "libc6", Version: "2.21-0ubuntu4", Priority: types.PriorityEssential}},
		"zlib1g":   {{Name: "zlib1g", Version: "1:1.2.8.dfsg-2ubuntu1", Priority: types.PriorityRequired}},
		"libidn11": {{Name: "libidn11", Version: "1.29-1"}},
		"dash":     {{Name: "dash", Version: "0.5.7-4", Priority: types.PriorityRequired, Essential: true}},
		"nano":     {{Name: "nano", Version: "2.2.6-3"}},
	}})
}

func TestSelectorSelect(t *testing.T) {
	selection, err := NewSelector(ClosureOptions{}).Select(t.Context(), selectorIndex(), []string{"libc6", "zlib1g", "not-in-index"}, []string{"curl"})
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"curl", "libcurl3", "libidn11"}, selection.Installs()); diff != "" {
		t.Fatalf("unexpected installs (-want +got):\n%s", diff)
	}
	require.Equal(t, types.DecisionKeep, selection.Decision("libc6"))
	require.Equal(t, types.DecisionKeep, selection.Decision("zlib1g"))
	require.Equal(t, types.DecisionKeep, selection.Decision("dash"))
	require.Equal(t, types.DecisionUnresolved, selection.Decision("nano"))
	require.Equal(t, "7.38.0-4", selection.Versions["curl"])
	require.NotContains(t, selection.Versions, "libc6")

	want := []types.SelectionEvent{
		{Package: "dash", Reason: types.SkipReasonEssential, Pulled: false},
		{Package: "libc6", Reason: types.SkipReasonEssential, Pulled: true},
		{Package: "zlib1g", Reason: types.SkipReasonManifest, Pulled: true},
	}
	if diff := cmp.Diff(want, selection.Events); diff != "" {
		t.Fatalf("unexpected events (-want +got):\n%s", diff)
	}
}

func TestSelectorRequestedOverridesExclusion(t *testing.T) {
	selection, err := NewSelector(ClosureOptions{}).Select(t.Context(), selectorIndex(), []string{"zlib1g"}, []string{"libc6", "zlib1g", "curl"})
	require.NoError(t, err)
	require.Equal(t, types.DecisionInstall, selection.Decision("libc6"))
	require.Equal(t, types.DecisionInstall, selection.Decision("zlib1g"))
	for _, event := range selection.Events {
		require.NotEqual(t, "libc6", event.Package)
		require.NotEqual(t, "zlib1g", event.Package)
	}
}

func TestSelectorPackageNotFound(t *testing.T) {
	selection, err := NewSelector(ClosureOptions{}).Select(t.Context(), selectorIndex(), []string{"zlib1g"}, []string{"curl", "no-such-package", "other-missing"})
	var notFound *types.PackageNotFoundError
	require.True(t, errors.As(err, &notFound), "expected PackageNotFoundError, got %v", err)
	require.Equal(t, "no-such-package", notFound.Name)
	require.Empty(t, selection.Events)
	require.Empty(t, selection.Installs())
}

func TestSelectorDuplicatesAreHarmless(t *testing.T) {
	selector := NewSelector(ClosureOptions{})
	once, err := selector.Select(t.Context(), selectorIndex(), nil, []string{"curl"})
	require.NoError(t, err)
	twice, err := selector.Select(t.Context(), selectorIndex(), nil, []string{"curl", " curl ", "curl"})
	require.NoError(t, err)
	require.Equal(t, once.Installs(), twice.Installs())
	require.Equal(t, []string{"curl"}, twice.Requested)
}

func TestSelectorEmptyRequest(t *testing.T) {
	selection, err := NewSelector(ClosureOptions{}).Select(t.Context(), selectorIndex(), []string{"nano"}, nil)
	require.NoError(t, err)
	require.Empty(t, selection.Installs())
	require.Equal(t, types.DecisionKeep, selection.Decision("nano"))
}

func TestSelectorNoExcludedPackageInstalled(t *testing.T) {
	index := selectorIndex()
	manifest := []string{"libidn11", "zlib1g"}
	requested := []string{"curl"}
	selection, err := NewSelector(ClosureOptions{UseSAT: true}).Select(t.Context(), index, manifest, requested)
	require.NoError(t, err)

	for _, name := range selection.Installs() {
		if name == "curl" {
			continue
		}
		pkg, ok := index.Candidate(name)
		require.True(t, ok)
		require.False(t, pkg.IsEssentialTier(), "%s is essential", name)
		require.NotContains(t, manifest, name)
	}
	require.Equal(t, []string{"curl", "libcurl3"}, selection.Installs())
}

func TestSelectorRequiresIndex(t *testing.T) {
	_, err := NewSelector(ClosureOptions{}).Select(t.Context(), nil, nil, []string{"curl"})
	require.Error(t, err)
}
