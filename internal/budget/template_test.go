package budget

import (
	"testing"

	"budget-backend/internal/models"

	"github.com/stretchr/testify/require"
)

func TestInstantiateTemplateBuildsItemTreeWithCodes(t *testing.T) {
	db := newTestDB(t)

	tmpl := models.BudgetTemplate{Name: "FO Project", Type: models.TemplateProject}
	require.NoError(t, db.Create(&tmpl).Error)
	matDetail := models.TemplateDetail{TemplateID: tmpl.ID, Sequence: "0100", Name: "Material", Type: "material"}
	require.NoError(t, db.Create(&matDetail).Error)
	svcDetail := models.TemplateDetail{TemplateID: tmpl.ID, Sequence: "0200", Name: "Service", Type: "service"}
	require.NoError(t, db.Create(&svcDetail).Error)
	require.NoError(t, db.Create(&models.TemplateDetail{
		TemplateID: tmpl.ID, Sequence: "0101", Name: "Cabling", Type: "material", ParentID: &matDetail.ID,
	}).Error)
	require.NoError(t, db.Create(&models.TemplateDetail{
		TemplateID: tmpl.ID, Sequence: "0102", Name: "Splicing", Type: "material", ParentID: &matDetail.ID,
	}).Error)

	b := seedBudget(t, db)
	b.TemplateID = &tmpl.ID
	require.NoError(t, db.Save(b).Error)

	require.NoError(t, instantiateTemplate(db, b))

	var roots []models.BudgetItem
	require.NoError(t, db.Where("budget_id = ? AND parent_id IS NULL", b.ID).Order("code ASC").Find(&roots).Error)
	require.Len(t, roots, 2)
	require.Equal(t, "0001/RAB-FO-0100", roots[0].Code)
	require.Equal(t, "0001/RAB-FO-0200", roots[1].Code)
	require.Equal(t, "0001/RAB-FO-0100 - Material", roots[0].DisplayName)

	var children []models.BudgetItem
	require.NoError(t, db.Where("parent_id = ?", roots[0].ID).Order("code ASC").Find(&children).Error)
	require.Len(t, children, 2)
	require.Equal(t, "0001/RAB-FO-0101", children[0].Code)
	require.Equal(t, "0001/RAB-FO-0102", children[1].Code)
}

func TestNextItemCodeStepsParentsByHundred(t *testing.T) {
	db := newTestDB(t)
	b := seedBudget(t, db)

	first, err := nextItemCode(db, b, nil)
	require.NoError(t, err)
	require.Equal(t, "0001/RAB-FO-0100", first)

	require.NoError(t, db.Create(&models.BudgetItem{
		BudgetID: b.ID, Code: first, Name: "Material", Type: "material",
	}).Error)

	second, err := nextItemCode(db, b, nil)
	require.NoError(t, err)
	require.Equal(t, "0001/RAB-FO-0200", second)
}

func TestBuildPreviewNestsChildrenWithoutPersisting(t *testing.T) {
	tmpl := models.BudgetTemplate{
		Details: []models.TemplateDetail{
			{ID: 1, Name: "Material", Type: "material"},
			{ID: 2, Name: "Cabling", Type: "material", ParentID: ptr(uint(1))},
			{ID: 3, Name: "Service", Type: "service", CheckDetail: true},
		},
	}

	items := BuildPreview(&tmpl)
	require.Len(t, items, 2)
	require.Equal(t, "Material", items[0].Name)
	require.Len(t, items[0].Children, 1)
	require.Equal(t, "Cabling", items[0].Children[0].Name)
	require.True(t, items[1].CheckDetail)
	require.Empty(t, items[1].Children)
}

func ptr[T any](v T) *T { return &v }
