package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veda-classroom/backend/internal/models"
)

func TestRenderCSV(t *testing.T) {
	rep := &models.SessionReport{
		Students: []models.SessionReportStudent{
			{StudentID: "stu-1", Name: "Asha", Status: "ATTENTIVE", AttentionScore: 92, ParticipationResponses: 4, TotalEvents: 5, QuizCorrect: 3, QuizTotal: 4, TabSwitches: 1, Points: 40},
			{StudentID: "stu-2", Name: "Ravi, Jr.", Status: "DISTRACTED", AttentionScore: 55, Points: 10},
		},
	}

	out, err := RenderCSV(rep)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "student_id,name,status,attention_score,participation_responses,total_events,quiz_correct,quiz_total,tab_switches,points", lines[0])
	assert.Equal(t, "stu-1,Asha,ATTENTIVE,92,4,5,3,4,1,40", lines[1])
	// names containing commas must stay quoted
	assert.Contains(t, lines[2], `"Ravi, Jr."`)
}

func TestRenderCSVEmptyReport(t *testing.T) {
	out, err := RenderCSV(&models.SessionReport{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 1) // header only
}
