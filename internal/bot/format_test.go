package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

func TestLookupRef(t *testing.T) {
	list := []string{"id-a", "id-b"}

	assert.Equal(t, "id-a", lookupRef(list, "1"))
	assert.Equal(t, "id-b", lookupRef(list, " #2 "))
	assert.Equal(t, "3", lookupRef(list, "3"))
	assert.Equal(t, "0", lookupRef(list, "0"))
	assert.Equal(t, "task_xyz", lookupRef(list, "task_xyz"))
	assert.Equal(t, "1", lookupRef(nil, "1"))
}

func TestParseTaskQuery(t *testing.T) {
	cases := []struct {
		in   string
		want service.TaskQuery
		ok   bool
	}{
		{"", service.TaskQuery{View: service.ViewAll}, true},
		{"semua", service.TaskQuery{View: service.ViewAll}, true},
		{"Pending", service.TaskQuery{View: service.ViewPending}, true},
		{"selesai", service.TaskQuery{View: service.ViewCompleted}, true},
		{"high", service.TaskQuery{View: service.ViewHigh}, true},
		{"finance", service.TaskQuery{Category: "finance"}, true},
		{"health & fitness", service.TaskQuery{Category: "health"}, true},
		{"whatever", service.TaskQuery{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, header, ok := parseTaskQuery(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
			if ok {
				assert.NotEmpty(t, header)
			}
		})
	}
}

func TestParseCategoryAndPriorityInput(t *testing.T) {
	c, ok := parseCategoryInput("Work & Business")
	require.True(t, ok)
	assert.Equal(t, model.CategoryWork, c)

	c, ok = parseCategoryInput(" OTHER ")
	require.True(t, ok)
	assert.Equal(t, model.CategoryOther, c)

	_, ok = parseCategoryInput("hobby")
	assert.False(t, ok)

	p, ok := parsePriorityInput("Urgent")
	require.True(t, ok)
	assert.Equal(t, model.PriorityUrgent, p)

	_, ok = parsePriorityInput("critical")
	assert.False(t, ok)
}

func TestParseDueDate(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)

	got, err := parseDueDate("2025-11-30", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 11, 30, 23, 59, 0, 0, loc).Equal(got))

	got, err = parseDueDate(" 2025-11-30 09:15 ", loc)
	require.NoError(t, err)
	assert.True(t, time.Date(2025, 11, 30, 9, 15, 0, 0, loc).Equal(got))

	_, err = parseDueDate("30/11/2025", loc)
	assert.Error(t, err)
}

func TestSplitRef(t *testing.T) {
	ref, rest := splitRef("  3   beli  roti ")
	assert.Equal(t, "3", ref)
	assert.Equal(t, "beli  roti", rest)

	ref, rest = splitRef("7")
	assert.Equal(t, "7", ref)
	assert.Empty(t, rest)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "pendek", shortTitle("pendek", 10))
	assert.Equal(t, "abcd…", shortTitle("abcdefgh", 5))
	assert.Equal(t, "a b", shortTitle("a\nb", 5))
}

func TestInputMatchers(t *testing.T) {
	assert.True(t, isSkipInput(btnSkip))
	assert.True(t, isSkipInput(" lewati "))
	assert.True(t, isSkipInput("-"))
	assert.False(t, isSkipInput("lanjut"))

	assert.True(t, isConfirmInput("Ya"))
	assert.True(t, isCancelInput(btnCancel))
	assert.True(t, isCancelDialogInput(btnCancelDialog))
	assert.False(t, isCancelDialogInput("batal"))
}

func TestFormatTaskListTruncates(t *testing.T) {
	var tasks []*model.Task
	for i := 0; i < maxListed+2; i++ {
		task, err := model.NewTask("t", "", "owner", model.TaskOptions{})
		require.NoError(t, err)
		tasks = append(tasks, task)
	}

	text := formatTaskList("📋 <b>Semua</b>", tasks, time.Now())
	assert.Contains(t, text, "(27)")
	assert.Contains(t, text, "<b>25.</b>")
	assert.NotContains(t, text, "<b>26.</b>")
	assert.Contains(t, text, "dan 2 task lainnya")
}

func TestCategoryKeyboardListsEveryCategory(t *testing.T) {
	kb := categoryKeyboard()

	var labels []string
	for _, row := range kb.Keyboard {
		for _, button := range row {
			labels = append(labels, button.Text)
		}
	}
	for _, c := range model.Categories() {
		assert.Contains(t, labels, c.DisplayName())
	}
	assert.Contains(t, labels, btnSkip)
}
