package inmemdb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobon98/school-management/core/result"
)

func TestResultRepository_SaveBatch(t *testing.T) {
	ctx := context.Background()
	db := NewDB()
	repo := NewResultRepository(db)

	batch := result.Batch{
		Results: []result.Result{
			{StudentID: "s1", SubjectID: "math", TermID: "t1", MarksObtained: 80, MaxMarks: 100},
			{StudentID: "s2", SubjectID: "math", TermID: "t1", MarksObtained: 60, MaxMarks: 100},
		},
		Cgpas: []result.TermCgpa{{StudentID: "s1", TermID: "t1", Cgpa: 8.5}},
	}

	first, err := repo.SaveBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, first.ResultIDs, 2)
	require.Len(t, first.CgpaIDs, 1)

	// no identity carried: the natural key finds the same rows
	second, err := repo.SaveBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	results, cgpas := db.CountResults()
	assert.Equal(t, 2, results)
	assert.Equal(t, 1, cgpas)

	db.Reject("s2", "marks")
	batch.Results[0].MarksObtained = 10
	_, err = repo.SaveBatch(ctx, batch)
	var rowErr *result.RowWriteError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "s2", rowErr.StudentID)

	stored, err := repo.QueryResults(ctx, "t1", "math", []string{"s1"})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 80.0, stored[0].MarksObtained)
}
