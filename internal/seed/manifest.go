package seed

import (
	"embed"
	"fmt"
	"os"

	"accessdesk/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed builtin.yml
var builtinManifest embed.FS

// Manifest is the declarative baseline reference data: departments,
// systems, and the templates that belong to them. Applying a manifest is
// idempotent; rows are matched by code or mnemonic and updated in place.
type Manifest struct {
	Departments []ManifestDepartment `yaml:"departments"`
	Systems     []ManifestSystem     `yaml:"systems"`
	Templates   []ManifestTemplate   `yaml:"templates"`
}

// ManifestDepartment declares one department by its stable code.
type ManifestDepartment struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ManifestSystem declares one downstream system by its stable code.
type ManifestSystem struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ManifestTemplate declares one access template. Department references the
// owning department's code.
type ManifestTemplate struct {
	Mnemonic          string   `yaml:"mnemonic"`
	Name              string   `yaml:"name"`
	Department        string   `yaml:"department"`
	Category          string   `yaml:"category"`
	Description       string   `yaml:"description"`
	EHRAccessLevel    string   `yaml:"ehr_access_level"`
	EHRModuleAccess   []string `yaml:"ehr_module_access"`
	EHRPermissions    []string `yaml:"ehr_permissions"`
	SystemAccess      []string `yaml:"system_access"`
	RequiresCOSReview bool     `yaml:"requires_cos_review"`
}

// BuiltInManifest parses the embedded baseline manifest.
func BuiltInManifest() (*Manifest, error) {
	raw, err := builtinManifest.ReadFile("builtin.yml")
	if err != nil {
		return nil, fmt.Errorf("read builtin manifest: %w", err)
	}
	return ParseManifest(raw)
}

// LoadManifest reads and parses a manifest file from disk.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return ParseManifest(raw)
}

// ParseManifest decodes manifest YAML and validates cross references.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	deptCodes := make(map[string]bool, len(m.Departments))
	for _, d := range m.Departments {
		if d.Code == "" || d.Name == "" {
			return fmt.Errorf("manifest department needs code and name: %+v", d)
		}
		if deptCodes[d.Code] {
			return fmt.Errorf("duplicate department code %q in manifest", d.Code)
		}
		deptCodes[d.Code] = true
	}

	sysCodes := make(map[string]bool, len(m.Systems))
	for _, s := range m.Systems {
		if s.Code == "" || s.Name == "" {
			return fmt.Errorf("manifest system needs code and name: %+v", s)
		}
		if sysCodes[s.Code] {
			return fmt.Errorf("duplicate system code %q in manifest", s.Code)
		}
		sysCodes[s.Code] = true
	}

	for _, t := range m.Templates {
		if t.Mnemonic == "" || t.Name == "" {
			return fmt.Errorf("manifest template needs mnemonic and name: %+v", t)
		}
		if !deptCodes[t.Department] {
			return fmt.Errorf("template %s references unknown department %q", t.Mnemonic, t.Department)
		}
		for _, code := range t.SystemAccess {
			if !sysCodes[code] {
				return fmt.Errorf("template %s grants unknown system %q", t.Mnemonic, code)
			}
		}
	}
	return nil
}

// Apply upserts the manifest's rows. Departments and systems are matched by
// code, templates by (department, mnemonic).
func (m *Manifest) Apply(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		deptIDs := make(map[string]uint, len(m.Departments))
		for _, item := range m.Departments {
			dept := models.Department{
				Code:        item.Code,
				Name:        item.Name,
				Description: item.Description,
				IsActive:    true,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
			}).Create(&dept).Error; err != nil {
				return fmt.Errorf("apply department %s: %w", item.Code, err)
			}
			if dept.ID == 0 {
				if err := tx.Where("code = ?", item.Code).First(&dept).Error; err != nil {
					return fmt.Errorf("reload department %s: %w", item.Code, err)
				}
			}
			deptIDs[item.Code] = dept.ID
		}

		for _, item := range m.Systems {
			system := models.System{
				Code:        item.Code,
				Name:        item.Name,
				Description: item.Description,
				IsActive:    true,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
			}).Create(&system).Error; err != nil {
				return fmt.Errorf("apply system %s: %w", item.Code, err)
			}
		}

		for _, item := range m.Templates {
			tpl := models.Template{
				Mnemonic:          item.Mnemonic,
				Name:              item.Name,
				DepartmentID:      deptIDs[item.Department],
				Category:          item.Category,
				Description:       item.Description,
				EHRAccessLevel:    item.EHRAccessLevel,
				EHRModuleAccess:   models.StringList(item.EHRModuleAccess),
				EHRPermissions:    models.StringList(item.EHRPermissions),
				SystemAccess:      models.StringList(item.SystemAccess),
				RequiresCOSReview: item.RequiresCOSReview,
				IsActive:          true,
				Version:           1,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "mnemonic"}, {Name: "department_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"name", "category", "description", "ehr_access_level",
					"ehr_module_access", "ehr_permissions", "system_access",
					"requires_cos_review", "updated_at",
				}),
			}).Create(&tpl).Error; err != nil {
				return fmt.Errorf("apply template %s: %w", item.Mnemonic, err)
			}
		}

		return nil
	})
}

// Baseline applies the embedded manifest. Called at startup so a fresh
// database always has the built-in departments, systems, and templates.
func Baseline(db *gorm.DB) error {
	m, err := BuiltInManifest()
	if err != nil {
		return err
	}
	return m.Apply(db)
}
