package render

import "html/template"

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="generator" content="{{.Generator}}">
<meta name="chart-family" content="{{.Family}}">
<meta name="chart-theme" content="{{.ThemeName}}">
<meta name="viewport" content="width={{.Width}}, height={{.Height}}">
<title>{{.Title}}</title>
<style>
html, body { margin: 0; padding: 0; background: {{.Background}}; color: {{.Text}}; }
#chart { width: {{.Width}}px; height: {{.Height}}px; }
</style>
{{- range .Scripts}}
<script src="{{.}}"></script>
{{- end}}
</head>
<body>
<div id="chart"></div>
<script type="application/json" id="chart-dataset">{{.Dataset}}</script>
<script>
(function () {
  var theme = {{.Theme}};
  var option = {{.Option}};
  echarts.registerTheme({{.ThemeName}}, theme);
  var chart = echarts.init(document.getElementById("chart"), {{.ThemeName}}, {
    renderer: "canvas", width: {{.Width}}, height: {{.Height}}
  });
  chart.on("finished", function () {
    if (window.__chartReady) { return; }
    window.__chartReady = true;
    document.body.setAttribute("data-chart-ready", "true");
  });
  chart.setOption(option);
})();
</script>
</body>
</html>
`))
