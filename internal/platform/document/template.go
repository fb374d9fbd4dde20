package document

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<meta charset="utf-8">
<style>
body { font-family: Arial, sans-serif; font-size: 12px; line-height: 1.4; margin: 20px; color: #000; }
.header { text-align: center; margin-bottom: 30px; border-bottom: 2px solid #000; padding-bottom: 15px; position: relative; }
.logo { position: absolute; left: 0; top: 0; width: 80px; height: 80px; }
.institution { font-weight: bold; font-size: 16px; margin-bottom: 5px; }
.form-title { font-weight: bold; font-size: 14px; margin: 10px 0; }
.section { margin: 20px 0; }
.section-title { font-weight: bold; font-size: 13px; margin-bottom: 10px; border-bottom: 1px solid #ccc; padding-bottom: 5px; }
.field { margin: 8px 0; display: flex; align-items: center; }
.field-label { font-weight: bold; min-width: 120px; margin-right: 10px; }
.field-value { border-bottom: 1px solid #000; flex: 1; min-height: 18px; padding: 2px 5px; }
.checkbox-group { display: flex; flex-wrap: wrap; gap: 15px; margin: 10px 0; }
.checkbox-item { display: flex; align-items: center; gap: 5px; }
.checkbox { width: 14px; height: 14px; border: 1px solid #000; display: inline-block; text-align: center; line-height: 14px; font-size: 12px; }
.justification { border: 1px solid #000; min-height: 60px; padding: 10px; margin: 10px 0; white-space: pre-wrap; }
.signatures { margin-top: 40px; display: flex; justify-content: space-between; gap: 20px; }
.signature-box { flex: 1; text-align: center; border-top: 1px solid #000; padding-top: 5px; margin-top: 40px; }
.signature-label { font-weight: bold; margin-bottom: 5px; }
.signature-name { margin: 20px 0; min-height: 30px; }
.signature-desc { font-size: 10px; color: #666; }
.intro-text { margin: 15px 0; font-style: italic; }
.actions { text-align: center; margin-top: 30px; }
.actions button { padding: 10px 20px; font-size: 14px; color: #fff; border: none; border-radius: 5px; cursor: pointer; }
@media print { body { margin: 0; } .no-print { display: none; } }
</style>
</head>
<body>
<div class="header">
{{- if .LogoURL}}
<img src="{{.LogoURL}}" alt="Logo {{.InstitutionShort}}" class="logo">
{{- end}}
<div class="institution">{{.Institution}}</div>
<div class="institution">{{.InstitutionShort}}</div>
<div class="form-title">{{.FormTitle}}</div>
</div>

<div class="section">
{{- if .GeneralTitle}}
<div class="section-title">{{.GeneralTitle}}</div>
{{- end}}
<div class="field"><span class="field-label">Fecha:</span><span class="field-value">{{.Date}}</span></div>
</div>

<div class="section">
{{- if .SubjectTitle}}
<div class="section-title">{{.SubjectTitle}}</div>
{{- end}}
<div class="intro-text">Atentamente solicito a usted se brinde alimentación a:</div>
{{- range .Fields}}
<div class="field"><span class="field-label">{{.Label}}:</span><span class="field-value">{{.Value}}</span></div>
{{- end}}
</div>

<div class="section">
<div class="section-title">TIEMPOS DE COMIDA SOLICITADOS</div>
<div class="checkbox-group">
{{- range .Meals}}
<div class="checkbox-item"><span class="checkbox">{{.Mark}}</span><span>{{.Label}}</span></div>
{{- end}}
</div>
</div>

<div class="section">
<div class="section-title">JUSTIFICACIÓN</div>
<div class="justification">{{.Justification}}</div>
</div>

<div class="section">
<div class="intro-text">Atentamente,</div>
<div class="signatures">
{{- range .Signatures}}
<div class="signature-box">
<div class="signature-label">{{.Label}}</div>
<div class="signature-name">{{.Name}}</div>
<div class="signature-desc">{{.Description}}</div>
</div>
{{- end}}
</div>
</div>

<div class="actions no-print">
<button onclick="window.print()" style="background: #007bff;">Imprimir PDF</button>
<button onclick="window.close()" style="background: #6c757d; margin-left: 10px;">Cerrar</button>
</div>
</body>
</html>
`))
